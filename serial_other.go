//go:build !windows

package serial

import "errors"

type unsupportedHost struct{}

// DefaultHost returns a host whose primitives all fail with
// errors.ErrUnsupported, only the Windows communications API is wired.
func DefaultHost() Host {
	return unsupportedHost{}
}

func (unsupportedHost) Acquire(string) (Handle, error) { return 0, errors.ErrUnsupported }
func (unsupportedHost) Release(Handle) error { return errors.ErrUnsupported }
func (unsupportedHost) GetControlBlock(Handle, *ControlBlock) error { return errors.ErrUnsupported }
func (unsupportedHost) SetControlBlock(Handle, *ControlBlock) error { return errors.ErrUnsupported }
func (unsupportedHost) GetTimeouts(Handle, *Timeouts) error { return errors.ErrUnsupported }
func (unsupportedHost) SetTimeouts(Handle, *Timeouts) error { return errors.ErrUnsupported }
func (unsupportedHost) Read(Handle, []byte) (uint32, error) { return 0, errors.ErrUnsupported }
func (unsupportedHost) Write(Handle, []byte) (uint32, error) { return 0, errors.ErrUnsupported }
func (unsupportedHost) Flush(Handle) error { return errors.ErrUnsupported }
func (unsupportedHost) Escape(Handle, EscapeFunc) error { return errors.ErrUnsupported }
func (unsupportedHost) ModemStatus(Handle) (ModemStatus, error) { return 0, errors.ErrUnsupported }
