package serial

import (
	"io"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

// only expected errors are timeout and eof
// despite different, closed will be reported as EOF
// SetReadTimeout, Read, and Write must detect EOF
type Port interface {
	SetReadTimeout(timeout time.Duration) error
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
}

// ComPort owns one host handle. It may be handed between goroutines but
// must not be used by two at once, except for Close.
type ComPort struct {
	host         Host
	path         string
	timeout      time.Duration
	writeTimeout time.Duration

	mu     sync.Mutex
	handle Handle
	closed bool
}

var _ Port = (*ComPort)(nil)

// Open opens cfg.Path on the platform host.
func Open(cfg Config) (*ComPort, error) {
	return OpenHost(DefaultHost(), cfg)
}

// OpenHost acquires a handle from host, applies the timeouts and then the
// control block. Only acquisition failures are reported under the Lenient
// policy, the rest are logged.
func OpenHost(host Host, cfg Config) (port *ComPort, err error) {
	handle, err := host.Acquire(cfg.Path)
	if err != nil {
		trace("acquire", zap.String("port", cfg.Path), zap.Error(err))
		return nil, newError(Unknown, "Invalid handle", err)
	}
	trace("acquire", zap.String("port", cfg.Path), zap.Uintptr("handle", uintptr(handle)))

	port = &ComPort{
		host:         host,
		path:         cfg.Path,
		timeout:      cfg.Timeout,
		writeTimeout: cfg.WriteTimeout,
		handle:       handle,
	}
	runtime.SetFinalizer(port, (*ComPort).release)

	// prevent handle leaks
	defer func() {
		if err != nil {
			port.Close()
			port = nil
		}
	}()

	// timeouts go first, applying the block may stall
	timeouts := readTimeouts(cfg.Timeout, cfg.WriteTimeout)
	err = port.tolerate(cfg.Policy, "set timeouts", host.SetTimeouts(handle, &timeouts))
	if err != nil {
		return
	}

	block := ControlBlock{}
	if gerr := host.GetControlBlock(handle, &block); gerr != nil {
		err = port.tolerate(cfg.Policy, "get control block", gerr)
		if err != nil {
			return
		}
		block = ControlBlock{}
	}
	translate(&block, cfg)
	err = port.tolerate(cfg.Policy, "set control block", host.SetControlBlock(handle, &block))
	if err != nil {
		return
	}

	logger().Debug("port opened",
		zap.String("port", cfg.Path),
		zap.Uint32("baud", cfg.BaudRate),
		zap.Stringer("parity", cfg.Parity),
		zap.Stringer("flow", cfg.FlowControl),
		zap.Duration("timeout", cfg.Timeout))
	return port, nil
}

func (port *ComPort) tolerate(policy OpenPolicy, step string, err error) error {
	if err == nil {
		return nil
	}
	if policy == Strict {
		return newError(Unknown, step, err)
	}
	logger().Warn("port configuration ignored",
		zap.String("port", port.path),
		zap.String("step", step),
		zap.Error(err))
	return nil
}

func (port *ComPort) Path() string {
	return port.path
}

// Timeout returns the read timeout in effect.
func (port *ComPort) Timeout() time.Duration {
	port.mu.Lock()
	defer port.mu.Unlock()
	return port.timeout
}

func (port *ComPort) live() (Handle, bool) {
	port.mu.Lock()
	defer port.mu.Unlock()
	return port.handle, !port.closed
}

func (port *ComPort) isClosed() bool {
	port.mu.Lock()
	defer port.mu.Unlock()
	return port.closed
}

// failure reports a closed port as EOF
func (port *ComPort) failure(err error) error {
	if err != nil && port.isClosed() {
		return io.EOF
	}
	return err
}

// Read waits up to the read timeout for the first byte. A read that
// transfers nothing fails with ErrTimeout.
func (port *ComPort) Read(p []byte) (n int, err error) {
	handle, ok := port.live()
	if !ok {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	count, err := port.host.Read(handle, p)
	trace("read", zap.String("port", port.path), zap.Uint32("count", count), zap.Error(err))
	n = int(count)
	if err != nil {
		return n, port.failure(err)
	}
	if count == 0 {
		return 0, ErrTimeout
	}
	return n, nil
}

// Write issues a single host write and returns what the host took.
func (port *ComPort) Write(p []byte) (n int, err error) {
	handle, ok := port.live()
	if !ok {
		return 0, io.EOF
	}
	count, err := port.host.Write(handle, p)
	trace("write", zap.String("port", port.path), zap.Uint32("count", count), zap.Error(err))
	return int(count), port.failure(err)
}

func (port *ComPort) Flush() error {
	handle, ok := port.live()
	if !ok {
		return io.EOF
	}
	return port.failure(port.host.Flush(handle))
}

// SetReadTimeout replaces the read timeout. The write settings in effect
// on the host are kept, the configured ones are used if they cannot be read.
func (port *ComPort) SetReadTimeout(timeout time.Duration) error {
	handle, ok := port.live()
	if !ok {
		return io.EOF
	}
	timeouts := readTimeouts(timeout, port.writeTimeout)
	current := Timeouts{}
	if err := port.host.GetTimeouts(handle, &current); err == nil {
		timeouts.WriteTotalTimeoutMultiplier = current.WriteTotalTimeoutMultiplier
		timeouts.WriteTotalTimeoutConstant = current.WriteTotalTimeoutConstant
	} else {
		trace("get timeouts", zap.String("port", port.path), zap.Error(err))
	}
	if err := port.host.SetTimeouts(handle, &timeouts); err != nil {
		return port.failure(err)
	}
	port.mu.Lock()
	port.timeout = timeout
	port.mu.Unlock()
	return nil
}

func (port *ComPort) SetDTR(on bool) error {
	if on {
		return port.escape(SetDTR)
	}
	return port.escape(ClrDTR)
}

func (port *ComPort) SetRTS(on bool) error {
	if on {
		return port.escape(SetRTS)
	}
	return port.escape(ClrRTS)
}

// SetBreak holds the line in break state until cleared.
func (port *ComPort) SetBreak(on bool) error {
	if on {
		return port.escape(SetBreak)
	}
	return port.escape(ClrBreak)
}

func (port *ComPort) escape(fn EscapeFunc) error {
	handle, ok := port.live()
	if !ok {
		return io.EOF
	}
	return port.failure(port.host.Escape(handle, fn))
}

func (port *ComPort) ModemStatus() (ModemStatus, error) {
	handle, ok := port.live()
	if !ok {
		return 0, io.EOF
	}
	status, err := port.host.ModemStatus(handle)
	return status, port.failure(err)
}

// Close releases the handle. It is safe to call more than once and
// from another goroutine, release failures are only logged.
func (port *ComPort) Close() error {
	port.release()
	runtime.SetFinalizer(port, nil)
	return nil
}

func (port *ComPort) release() {
	port.mu.Lock()
	defer port.mu.Unlock()
	if port.closed {
		return
	}
	port.closed = true
	if err := port.host.Release(port.handle); err != nil {
		logger().Warn("port release failed", zap.String("port", port.path), zap.Error(err))
	}
	trace("release", zap.String("port", port.path))
	port.handle = 0
}
