package serial

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"
)

var (
	errInvalidHandle    = errors.New("the handle is invalid")
	errInvalidParameter = errors.New("the parameter is incorrect")
)

// LoopbackHost is an in-memory Host of virtual devices. A loopback device
// reads back what it writes, a pair behaves as two ports joined by a null
// modem cable. Read timeouts follow the host rules, RTS drives the far
// end's CTS and DTR drives DSR and DCD.
type LoopbackHost struct {
	mu      sync.Mutex
	devices map[string]*loopDevice
	handles map[Handle]*loopDevice
	next    Handle
}

type loopDevice struct {
	name       string
	peer       *loopDevice
	open       bool
	rx         []byte
	notify     chan struct{}
	block      ControlBlock
	timeouts   Timeouts
	rts, dtr   bool
	brk        bool
	writeLimit int
}

var _ Host = (*LoopbackHost)(nil)

func NewLoopbackHost() *LoopbackHost {
	return &LoopbackHost{
		devices: make(map[string]*loopDevice),
		handles: make(map[Handle]*loopDevice),
	}
}

func newLoopDevice(name string) *loopDevice {
	return &loopDevice{
		name:   name,
		notify: make(chan struct{}),
		block: ControlBlock{
			BaudRate: 9600,
			ByteSize: 8,
			Flags:    FlagBinary | DtrControlEnable | RtsControlEnable,
		},
	}
}

// AddLoopback creates a device that reads back its own writes.
func (lh *LoopbackHost) AddLoopback(name string) {
	lh.mu.Lock()
	defer lh.mu.Unlock()
	dev := newLoopDevice(name)
	dev.peer = dev
	lh.devices[devName(name)] = dev
}

// AddPair creates two devices wired to each other.
func (lh *LoopbackHost) AddPair(a, b string) {
	lh.mu.Lock()
	defer lh.mu.Unlock()
	da := newLoopDevice(a)
	db := newLoopDevice(b)
	da.peer = db
	db.peer = da
	lh.devices[devName(a)] = da
	lh.devices[devName(b)] = db
}

// SetWriteLimit caps how many bytes a single write to name accepts,
// zero removes the cap.
func (lh *LoopbackHost) SetWriteLimit(name string, limit int) error {
	lh.mu.Lock()
	defer lh.mu.Unlock()
	dev, ok := lh.devices[devName(name)]
	if !ok {
		return fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}
	dev.writeLimit = limit
	return nil
}

// ControlBlock returns the block last applied to name.
func (lh *LoopbackHost) ControlBlock(name string) (ControlBlock, bool) {
	lh.mu.Lock()
	defer lh.mu.Unlock()
	dev, ok := lh.devices[devName(name)]
	if !ok {
		return ControlBlock{}, false
	}
	return dev.block, true
}

// Timeouts returns the timeouts last applied to name.
func (lh *LoopbackHost) Timeouts(name string) (Timeouts, bool) {
	lh.mu.Lock()
	defer lh.mu.Unlock()
	dev, ok := lh.devices[devName(name)]
	if !ok {
		return Timeouts{}, false
	}
	return dev.timeouts, true
}

func devName(path string) string {
	return strings.ToUpper(strings.TrimPrefix(path, `\\.\`))
}

func (lh *LoopbackHost) Acquire(path string) (Handle, error) {
	lh.mu.Lock()
	defer lh.mu.Unlock()
	dev, ok := lh.devices[devName(path)]
	if !ok {
		return 0, fmt.Errorf("%s: %w", path, fs.ErrNotExist)
	}
	if dev.open {
		return 0, fmt.Errorf("%s: %w", path, fs.ErrPermission)
	}
	dev.open = true
	dev.rx = nil
	lh.next++
	lh.handles[lh.next] = dev
	return lh.next, nil
}

func (lh *LoopbackHost) device(h Handle) (*loopDevice, error) {
	dev, ok := lh.handles[h]
	if !ok {
		return nil, errInvalidHandle
	}
	return dev, nil
}

func (lh *LoopbackHost) Release(h Handle) error {
	lh.mu.Lock()
	defer lh.mu.Unlock()
	dev, err := lh.device(h)
	if err != nil {
		return err
	}
	delete(lh.handles, h)
	dev.open = false
	dev.rx = nil
	dev.rts, dev.dtr, dev.brk = false, false, false
	dev.signal()
	return nil
}

func (lh *LoopbackHost) GetControlBlock(h Handle, block *ControlBlock) error {
	lh.mu.Lock()
	defer lh.mu.Unlock()
	dev, err := lh.device(h)
	if err != nil {
		return err
	}
	*block = dev.block
	return nil
}

func (lh *LoopbackHost) SetControlBlock(h Handle, block *ControlBlock) error {
	lh.mu.Lock()
	defer lh.mu.Unlock()
	dev, err := lh.device(h)
	if err != nil {
		return err
	}
	if block.BaudRate == 0 || block.ByteSize < 5 || block.ByteSize > 8 ||
		block.Parity > spaceParity || block.StopBits > twoStopBits {
		return errInvalidParameter
	}
	dev.block = *block
	return nil
}

func (lh *LoopbackHost) GetTimeouts(h Handle, timeouts *Timeouts) error {
	lh.mu.Lock()
	defer lh.mu.Unlock()
	dev, err := lh.device(h)
	if err != nil {
		return err
	}
	*timeouts = dev.timeouts
	return nil
}

func (lh *LoopbackHost) SetTimeouts(h Handle, timeouts *Timeouts) error {
	lh.mu.Lock()
	defer lh.mu.Unlock()
	dev, err := lh.device(h)
	if err != nil {
		return err
	}
	dev.timeouts = *timeouts
	return nil
}

// Read returns what is buffered, waiting for the first byte as the
// timeouts allow. All zero timeouts wait forever, an interval of
// MAXDWORD with zero totals returns at once.
func (lh *LoopbackHost) Read(h Handle, p []byte) (uint32, error) {
	lh.mu.Lock()
	dev, err := lh.device(h)
	if err != nil {
		lh.mu.Unlock()
		return 0, err
	}
	to := dev.timeouts
	var expired <-chan time.Time
	switch {
	case to.ReadIntervalTimeout == 0xFFFFFFFF && to.ReadTotalTimeoutMultiplier == 0 &&
		to.ReadTotalTimeoutConstant == 0:
		closed := make(chan time.Time)
		close(closed)
		expired = closed
	case to.ReadTotalTimeoutMultiplier != 0 || to.ReadTotalTimeoutConstant != 0:
		total := uint64(to.ReadTotalTimeoutMultiplier)*uint64(len(p)) + uint64(to.ReadTotalTimeoutConstant)
		timer := time.NewTimer(time.Duration(total) * time.Millisecond)
		defer timer.Stop()
		expired = timer.C
	}
	for {
		if len(dev.rx) > 0 {
			n := copy(p, dev.rx)
			dev.rx = dev.rx[n:]
			lh.mu.Unlock()
			return uint32(n), nil
		}
		notify := dev.notify
		lh.mu.Unlock()
		select {
		case <-notify:
		case <-expired:
			lh.mu.Lock()
			_, err = lh.device(h)
			lh.mu.Unlock()
			return 0, err
		}
		lh.mu.Lock()
		if _, err = lh.device(h); err != nil {
			lh.mu.Unlock()
			return 0, err
		}
	}
}

func (lh *LoopbackHost) Write(h Handle, p []byte) (uint32, error) {
	lh.mu.Lock()
	defer lh.mu.Unlock()
	dev, err := lh.device(h)
	if err != nil {
		return 0, err
	}
	n := len(p)
	if dev.writeLimit > 0 && n > dev.writeLimit {
		n = dev.writeLimit
	}
	peer := dev.peer
	if peer.open && !dev.brk {
		peer.rx = append(peer.rx, p[:n]...)
		peer.signal()
	}
	return uint32(n), nil
}

func (lh *LoopbackHost) Flush(h Handle) error {
	lh.mu.Lock()
	defer lh.mu.Unlock()
	_, err := lh.device(h)
	return err
}

func (lh *LoopbackHost) Escape(h Handle, fn EscapeFunc) error {
	lh.mu.Lock()
	defer lh.mu.Unlock()
	dev, err := lh.device(h)
	if err != nil {
		return err
	}
	switch fn {
	case SetRTS, ClrRTS:
		dev.rts = fn == SetRTS
	case SetDTR, ClrDTR:
		dev.dtr = fn == SetDTR
	case SetBreak, ClrBreak:
		dev.brk = fn == SetBreak
	case SetXOn, SetXOff:
	default:
		return errInvalidParameter
	}
	return nil
}

func (lh *LoopbackHost) ModemStatus(h Handle) (ModemStatus, error) {
	lh.mu.Lock()
	defer lh.mu.Unlock()
	dev, err := lh.device(h)
	if err != nil {
		return 0, err
	}
	var status ModemStatus
	if dev.peer.rts {
		status |= CTSOn
	}
	if dev.peer.dtr {
		status |= DSROn | RLSDOn
	}
	return status, nil
}

// signal wakes readers waiting on dev, callers hold the host lock
func (dev *loopDevice) signal() {
	close(dev.notify)
	dev.notify = make(chan struct{})
}
