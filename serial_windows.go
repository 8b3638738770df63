//go:build windows

package serial

/*
// MSDN article on Serial Communications:
// http://msdn.microsoft.com/en-us/library/ff802693.aspx
// (alternative link) https://msdn.microsoft.com/en-us/library/ms810467.aspx
// Arduino Playground article on serial communication with Windows API:
// http://playground.arduino.cc/Interfacing/CPPWindows
*/

import (
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32               = windows.NewLazySystemDLL("kernel32.dll")
	procGetCommState       = kernel32.NewProc("GetCommState")
	procSetCommState       = kernel32.NewProc("SetCommState")
	procGetCommTimeouts    = kernel32.NewProc("GetCommTimeouts")
	procSetCommTimeouts    = kernel32.NewProc("SetCommTimeouts")
	procEscapeCommFunction = kernel32.NewProc("EscapeCommFunction")
	procGetCommModemStatus = kernel32.NewProc("GetCommModemStatus")
)

type winHost struct{}

// DefaultHost returns the kernel32 backed host.
func DefaultHost() Host {
	return winHost{}
}

func (winHost) Acquire(path string) (Handle, error) {
	if !strings.HasPrefix(path, `\\.\`) {
		path = `\\.\` + path
	}
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	h, err := windows.CreateFile(
		p,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0, nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL,
		0)
	if err != nil {
		return 0, err
	}
	return Handle(h), nil
}

func (winHost) Release(h Handle) error {
	return windows.CloseHandle(windows.Handle(h))
}

func (winHost) GetControlBlock(h Handle, block *ControlBlock) error {
	block.DCBlength = uint32(unsafe.Sizeof(*block))
	r, _, err := procGetCommState.Call(uintptr(h), uintptr(unsafe.Pointer(block)))
	return commErr(r, err)
}

func (winHost) SetControlBlock(h Handle, block *ControlBlock) error {
	block.DCBlength = uint32(unsafe.Sizeof(*block))
	r, _, err := procSetCommState.Call(uintptr(h), uintptr(unsafe.Pointer(block)))
	return commErr(r, err)
}

func (winHost) GetTimeouts(h Handle, timeouts *Timeouts) error {
	r, _, err := procGetCommTimeouts.Call(uintptr(h), uintptr(unsafe.Pointer(timeouts)))
	return commErr(r, err)
}

func (winHost) SetTimeouts(h Handle, timeouts *Timeouts) error {
	r, _, err := procSetCommTimeouts.Call(uintptr(h), uintptr(unsafe.Pointer(timeouts)))
	return commErr(r, err)
}

func (winHost) Read(h Handle, p []byte) (count uint32, err error) {
	err = windows.ReadFile(windows.Handle(h), p, &count, nil)
	return
}

func (winHost) Write(h Handle, p []byte) (count uint32, err error) {
	err = windows.WriteFile(windows.Handle(h), p, &count, nil)
	return
}

func (winHost) Flush(h Handle) error {
	return windows.FlushFileBuffers(windows.Handle(h))
}

func (winHost) Escape(h Handle, fn EscapeFunc) error {
	r, _, err := procEscapeCommFunction.Call(uintptr(h), uintptr(fn))
	return commErr(r, err)
}

func (winHost) ModemStatus(h Handle) (ModemStatus, error) {
	var status uint32
	r, _, err := procGetCommModemStatus.Call(uintptr(h), uintptr(unsafe.Pointer(&status)))
	return ModemStatus(status), commErr(r, err)
}

// commErr maps a kernel32 BOOL result to an error. Callers invoke
// proc.Call directly so pointer arguments stay alive for the call.
func commErr(r uintptr, err error) error {
	if r == 0 {
		return err
	}
	return nil
}
