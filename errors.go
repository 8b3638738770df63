package serial

import (
	"errors"
	"fmt"
	"os"
)

type ErrorKind int

const (
	// NotFound is reserved for a missing device, open currently reports Unknown.
	NotFound ErrorKind = iota
	// TimeOut is reserved, open never produces it.
	TimeOut
	Unknown
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case TimeOut:
		return "timeout"
	case Unknown:
		return "unknown"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is returned by open time operations. Per operation I/O failures
// carry the host error instead.
type Error struct {
	Kind ErrorKind
	Desc string
	Err  error
}

func newError(kind ErrorKind, desc string, err error) *Error {
	return &Error{Kind: kind, Desc: desc, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Desc, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Desc)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}

// ErrTimeout is returned by Read when the read timeout elapsed with no data.
var ErrTimeout error = &timeoutError{}

type timeoutError struct{}

func (*timeoutError) Error() string { return "operation timed out" }
func (*timeoutError) Timeout() bool { return true }
func (*timeoutError) Temporary() bool { return true }
func (*timeoutError) Unwrap() error { return os.ErrDeadlineExceeded }
