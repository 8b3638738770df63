package serial

// Handle is an opaque host device handle. Only a Host interprets it.
type Handle uintptr

// Host is the set of native primitives a port is built on. The platform
// host is returned by DefaultHost, tests and tools may supply their own.
//
// Read and Write report the transferred count even when they fail.
// A Read returning (0, nil) means the read timeout elapsed.
type Host interface {
	Acquire(path string) (Handle, error)
	Release(h Handle) error
	GetControlBlock(h Handle, block *ControlBlock) error
	SetControlBlock(h Handle, block *ControlBlock) error
	GetTimeouts(h Handle, timeouts *Timeouts) error
	SetTimeouts(h Handle, timeouts *Timeouts) error
	Read(h Handle, p []byte) (uint32, error)
	Write(h Handle, p []byte) (uint32, error)
	Flush(h Handle) error
	Escape(h Handle, fn EscapeFunc) error
	ModemStatus(h Handle) (ModemStatus, error)
}

// EscapeFunc values are the host extended function codes.
type EscapeFunc uint32

const (
	SetXOff  EscapeFunc = 1
	SetXOn   EscapeFunc = 2
	SetRTS   EscapeFunc = 3
	ClrRTS   EscapeFunc = 4
	SetDTR   EscapeFunc = 5
	ClrDTR   EscapeFunc = 6
	SetBreak EscapeFunc = 8
	ClrBreak EscapeFunc = 9
)

// ModemStatus is the host modem status bit set.
type ModemStatus uint32

const (
	CTSOn  ModemStatus = 0x0010
	DSROn  ModemStatus = 0x0020
	RingOn ModemStatus = 0x0040
	RLSDOn ModemStatus = 0x0080
)

func (m ModemStatus) CTS() bool { return m&CTSOn != 0 }
func (m ModemStatus) DSR() bool { return m&DSROn != 0 }
func (m ModemStatus) Ring() bool { return m&RingOn != 0 }
func (m ModemStatus) DCD() bool { return m&RLSDOn != 0 }
