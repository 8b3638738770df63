package serial

import (
	"fmt"
	"strings"
	"time"
)

type DataBits byte

const (
	DataBits5 DataBits = 5
	DataBits6 DataBits = 6
	DataBits7 DataBits = 7
	DataBits8 DataBits = 8
)

func (d DataBits) String() string {
	return fmt.Sprintf("%d", byte(d))
}

func ParseDataBits(s string) (DataBits, error) {
	switch strings.TrimSpace(s) {
	case "5":
		return DataBits5, nil
	case "6":
		return DataBits6, nil
	case "7":
		return DataBits7, nil
	case "8":
		return DataBits8, nil
	}
	return 0, fmt.Errorf("invalid databits %q", s)
}

// StopBits values are the host stop bit codes. One and a half
// stop bits is not exposed.
type StopBits byte

const (
	OneStopBit  StopBits = 0
	TwoStopBits StopBits = 2
)

func (s StopBits) String() string {
	switch s {
	case OneStopBit:
		return "1"
	case TwoStopBits:
		return "2"
	}
	return fmt.Sprintf("StopBits(%d)", byte(s))
}

func ParseStopBits(s string) (StopBits, error) {
	switch strings.TrimSpace(s) {
	case "1":
		return OneStopBit, nil
	case "2":
		return TwoStopBits, nil
	}
	return 0, fmt.Errorf("invalid stopbits %q", s)
}

type Parity int

const (
	NoParity Parity = iota
	OddParity
	EvenParity
	MarkParity
	SpaceParity
)

var parityNames = map[Parity]string{
	NoParity:    "none",
	OddParity:   "odd",
	EvenParity:  "even",
	MarkParity:  "mark",
	SpaceParity: "space",
}

func (p Parity) String() string {
	if name, ok := parityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Parity(%d)", int(p))
}

func ParseParity(s string) (Parity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range parityNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("invalid parity %q", s)
}

type FlowControl int

const (
	NoFlowControl FlowControl = iota
	XOnXOff
	RtsCts
	DtrDsr
	// RtsCtsXOnXOff is accepted but leaves the control block untouched.
	RtsCtsXOnXOff
	// DtrDsrXOnXOff is accepted but leaves the control block untouched.
	DtrDsrXOnXOff
)

var flowControlNames = map[FlowControl]string{
	NoFlowControl: "none",
	XOnXOff:       "xonxoff",
	RtsCts:        "rtscts",
	DtrDsr:        "dtrdsr",
	RtsCtsXOnXOff: "rtscts+xonxoff",
	DtrDsrXOnXOff: "dtrdsr+xonxoff",
}

func (f FlowControl) String() string {
	if name, ok := flowControlNames[f]; ok {
		return name
	}
	return fmt.Sprintf("FlowControl(%d)", int(f))
}

func ParseFlowControl(s string) (FlowControl, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, name := range flowControlNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("invalid flow control %q", s)
}

// OpenPolicy selects what Open does when configuring an acquired
// handle fails.
type OpenPolicy int

const (
	// Lenient logs the failure and returns a port that may run with
	// the device's previous settings.
	Lenient OpenPolicy = iota
	// Strict releases the handle and returns an Unknown error.
	Strict
)

func (p OpenPolicy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}

const DefaultTimeout = 500 * time.Millisecond

// Config describes a port. It is a value, the With helpers return
// modified copies.
type Config struct {
	Path        string
	BaudRate    uint32 // passed to the host unchecked
	DataBits    DataBits
	StopBits    StopBits
	Parity      Parity
	FlowControl FlowControl

	// Timeout bounds a read waiting for its first byte. It is truncated
	// to whole milliseconds, so zero or anything under 1ms leaves all read
	// timeouts at zero and a read blocks until data arrives.
	Timeout time.Duration

	// WriteTimeout bounds a write, zero blocks until the host takes the data.
	WriteTimeout time.Duration

	Policy OpenPolicy
}

func NewConfig(path string, baudRate uint32) Config {
	return Config{
		Path:        path,
		BaudRate:    baudRate,
		DataBits:    DataBits8,
		StopBits:    OneStopBit,
		Parity:      NoParity,
		FlowControl: NoFlowControl,
		Timeout:     DefaultTimeout,
	}
}

func (c Config) WithDataBits(bits DataBits) Config {
	c.DataBits = bits
	return c
}

func (c Config) WithStopBits(bits StopBits) Config {
	c.StopBits = bits
	return c
}

func (c Config) WithParity(parity Parity) Config {
	c.Parity = parity
	return c
}

func (c Config) WithFlowControl(flow FlowControl) Config {
	c.FlowControl = flow
	return c
}

func (c Config) WithTimeout(timeout time.Duration) Config {
	c.Timeout = timeout
	return c
}

func (c Config) WithWriteTimeout(timeout time.Duration) Config {
	c.WriteTimeout = timeout
	return c
}

func (c Config) WithPolicy(policy OpenPolicy) Config {
	c.Policy = policy
	return c
}

// Open opens the configured port on the platform host.
func (c Config) Open() (*ComPort, error) {
	return Open(c)
}

func (c Config) String() string {
	return fmt.Sprintf("%s %d %s%s%s flow=%s timeout=%s",
		c.Path, c.BaudRate, c.DataBits, strings.ToUpper(c.Parity.String()[:1]), c.StopBits,
		c.FlowControl, c.Timeout)
}
