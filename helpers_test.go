package serial

import (
	"log"
	"runtime/debug"
	"sync"
	"testing"
)

const fakeHandle Handle = 7

type fakeRead struct {
	data []byte
	err  error
}

// fakeHost scripts every host primitive and records the calls made.
type fakeHost struct {
	mu    sync.Mutex
	calls []string

	acquireErr  error
	timeoutsErr error
	getErr      error
	setErr      error
	releaseErr  error
	writeErr    error
	flushErr    error
	escapeErr   error

	block    ControlBlock
	applied  *ControlBlock
	timeouts Timeouts
	reads    []fakeRead
	written  []byte
	accept   int
	escapes  []EscapeFunc
	status   ModemStatus
	releases int
}

func (h *fakeHost) record(call string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call)
}

func (h *fakeHost) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func (h *fakeHost) Acquire(path string) (Handle, error) {
	h.record("acquire")
	if h.acquireErr != nil {
		return 0, h.acquireErr
	}
	return fakeHandle, nil
}

func (h *fakeHost) Release(Handle) error {
	h.record("release")
	h.mu.Lock()
	h.releases++
	h.mu.Unlock()
	return h.releaseErr
}

func (h *fakeHost) GetControlBlock(_ Handle, block *ControlBlock) error {
	h.record("get block")
	if h.getErr != nil {
		// a failing host may leave garbage behind
		block.Flags = 0xFFFFFFFF
		return h.getErr
	}
	*block = h.block
	return nil
}

func (h *fakeHost) SetControlBlock(_ Handle, block *ControlBlock) error {
	h.record("set block")
	applied := *block
	h.applied = &applied
	return h.setErr
}

func (h *fakeHost) GetTimeouts(_ Handle, timeouts *Timeouts) error {
	h.record("get timeouts")
	*timeouts = h.timeouts
	return nil
}

func (h *fakeHost) SetTimeouts(_ Handle, timeouts *Timeouts) error {
	h.record("set timeouts")
	if h.timeoutsErr != nil {
		return h.timeoutsErr
	}
	h.timeouts = *timeouts
	return nil
}

func (h *fakeHost) Read(_ Handle, p []byte) (uint32, error) {
	h.record("read")
	if len(h.reads) == 0 {
		return 0, nil
	}
	next := h.reads[0]
	h.reads = h.reads[1:]
	n := copy(p, next.data)
	return uint32(n), next.err
}

func (h *fakeHost) Write(_ Handle, p []byte) (uint32, error) {
	h.record("write")
	if h.writeErr != nil {
		return 0, h.writeErr
	}
	n := len(p)
	if h.accept > 0 && n > h.accept {
		n = h.accept
	}
	h.written = append(h.written, p[:n]...)
	return uint32(n), nil
}

func (h *fakeHost) Flush(Handle) error {
	h.record("flush")
	return h.flushErr
}

func (h *fakeHost) Escape(_ Handle, fn EscapeFunc) error {
	h.record("escape")
	h.escapes = append(h.escapes, fn)
	return h.escapeErr
}

func (h *fakeHost) ModemStatus(Handle) (ModemStatus, error) {
	h.record("modem status")
	return h.status, nil
}

func openFake(t *testing.T, host *fakeHost, cfg Config) *ComPort {
	t.Helper()
	port, err := OpenHost(host, cfg)
	fatalIfError(t, err)
	t.Cleanup(func() { port.Close() })
	return port
}

//TOOLS/////////////////////////////////////

func logPanic() {
	if r := recover(); r != nil {
		log.Println(r, string(debug.Stack()))
	}
}

func fatalIfError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
