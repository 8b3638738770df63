package serial

import (
	"errors"
	"time"

	"github.com/samuelventura/go-modbus"
)

func NewTimedReader(port Port) *portTimedReader {
	return &portTimedReader{port}
}

type portTimedReader struct {
	port Port
}

// TimedRead reports an elapsed read timeout as (0, nil), which is
// what the modbus io transport polls for.
func (to portTimedReader) TimedRead(buf []byte) (c int, err error) {
	c = 0
	err = to.port.SetReadTimeout(time.Duration(modbus.ReadToMs) * time.Millisecond)
	if err != nil {
		return
	}
	c, err = to.port.Read(buf)
	if errors.Is(err, ErrTimeout) {
		err = nil
	}
	return
}

func NewSerialTransport(cfg Config) (trans modbus.Transport, err error) {
	return NewHostTransport(DefaultHost(), cfg)
}

// NewHostTransport opens cfg on host and wraps it as a modbus transport.
func NewHostTransport(host Host, cfg Config) (trans modbus.Transport, err error) {
	port, err := OpenHost(host, cfg)
	if err != nil {
		return
	}
	trans = modbus.NewIoTransport(NewTimedReader(port), port)
	return
}
