package serial

/*
// MSDN article on Serial Communications:
// http://msdn.microsoft.com/en-us/library/ff802693.aspx
// DCB structure:
// https://learn.microsoft.com/en-us/windows/win32/api/winbase/ns-winbase-dcb
*/

import "time"

// ControlBlock mirrors the host DCB layout.
type ControlBlock struct {
	DCBlength uint32
	BaudRate  uint32

	// Flags field is a bitfield
	//  fBinary            :1
	//  fParity            :1
	//  fOutxCtsFlow       :1
	//  fOutxDsrFlow       :1
	//  fDtrControl        :2
	//  fDsrSensitivity    :1
	//  fTXContinueOnXoff  :1
	//  fOutX              :1
	//  fInX               :1
	//  fErrorChar         :1
	//  fNull              :1
	//  fRtsControl        :2
	//  fAbortOnError      :1
	//  fDummy2            :17
	Flags uint32

	wReserved  uint16
	XonLim     uint16
	XoffLim    uint16
	ByteSize   byte
	Parity     byte
	StopBits   byte
	XonChar    byte
	XoffChar   byte
	ErrorChar  byte
	EOFChar    byte
	EvtChar    byte
	wReserved1 uint16
}

const (
	FlagBinary           uint32 = 0x00000001
	FlagParity           uint32 = 0x00000002
	FlagOutxCtsFlow      uint32 = 0x00000004
	FlagOutxDsrFlow      uint32 = 0x00000008
	FlagDtrControl       uint32 = 0x00000030
	FlagDsrSensitivity   uint32 = 0x00000040
	FlagTXContinueOnXoff uint32 = 0x00000080
	FlagOutX             uint32 = 0x00000100
	FlagInX              uint32 = 0x00000200
	FlagErrorChar        uint32 = 0x00000400
	FlagNull             uint32 = 0x00000800
	FlagRtsControl       uint32 = 0x00003000
	FlagAbortOnError     uint32 = 0x00004000
)

// Line control values within the FlagDtrControl and FlagRtsControl groups.
const (
	DtrControlEnable uint32 = 0x00000010
	RtsControlEnable uint32 = 0x00001000
)

const (
	noParity    = 0
	oddParity   = 1
	evenParity  = 2
	markParity  = 3
	spaceParity = 4
)

var parityMap = map[Parity]byte{
	NoParity:    noParity,
	OddParity:   oddParity,
	EvenParity:  evenParity,
	MarkParity:  markParity,
	SpaceParity: spaceParity,
}

const (
	oneStopBit  = 0
	twoStopBits = 2 // one and a half (1) is not exposed
)

var stopBitsMap = map[StopBits]byte{
	OneStopBit:  oneStopBit,
	TwoStopBits: twoStopBits,
}

// Timeouts mirrors the host COMMTIMEOUTS structure, all values in ms.
type Timeouts struct {
	ReadIntervalTimeout         uint32
	ReadTotalTimeoutMultiplier  uint32
	ReadTotalTimeoutConstant    uint32
	WriteTotalTimeoutMultiplier uint32
	WriteTotalTimeoutConstant   uint32
}

// readTimeouts waits up to read for the first byte of a read.
// A zero write timeout leaves writes unbounded.
func readTimeouts(read, write time.Duration) Timeouts {
	return Timeouts{
		ReadIntervalTimeout:         0,
		ReadTotalTimeoutMultiplier:  0,
		ReadTotalTimeoutConstant:    toMillis(read),
		WriteTotalTimeoutMultiplier: 0,
		WriteTotalTimeoutConstant:   toMillis(write),
	}
}

func toMillis(d time.Duration) uint32 {
	ms := d.Milliseconds()
	if ms < 0 {
		return 0
	}
	if ms > 0xFFFFFFFE {
		// 0xFFFFFFFF means return immediately to the host
		return 0xFFFFFFFE
	}
	return uint32(ms)
}

// the host rejects unsupported rates when the block is applied
func setBaudRate(block *ControlBlock, rate uint32) {
	block.BaudRate = rate
}

func setDataBits(block *ControlBlock, bits DataBits) {
	switch bits {
	case DataBits5:
		block.ByteSize = 5
	case DataBits6:
		block.ByteSize = 6
	case DataBits7:
		block.ByteSize = 7
	case DataBits8:
		block.ByteSize = 8
	}
}

func setStopBits(block *ControlBlock, bits StopBits) {
	if code, ok := stopBitsMap[bits]; ok {
		block.StopBits = code
	}
}

// The host ignores the parity code unless FlagParity agrees.
func setParity(block *ControlBlock, parity Parity) {
	if code, ok := parityMap[parity]; ok {
		block.Parity = code
	}
	if parity == NoParity {
		block.Flags &^= FlagParity
	} else {
		block.Flags |= FlagParity
	}
}

// setFlowControl clears each group it touches before setting it. RtsCts and
// DtrDsr only clear their hardware groups, the combined modes are no-ops.
func setFlowControl(block *ControlBlock, flow FlowControl) {
	switch flow {
	case NoFlowControl:
		block.Flags &^= FlagOutxCtsFlow | FlagRtsControl
		block.Flags &^= FlagOutX | FlagInX
	case XOnXOff:
		block.Flags |= FlagOutX | FlagInX
	case RtsCts:
		block.Flags &^= FlagOutxCtsFlow | FlagRtsControl
	case DtrDsr:
		block.Flags &^= FlagOutxDsrFlow | FlagDtrControl
	case RtsCtsXOnXOff, DtrDsrXOnXOff:
		// combined modes leave the block untouched, no flow control is applied
	}
}

// translate applies cfg to block in a fixed field order.
func translate(block *ControlBlock, cfg Config) {
	setBaudRate(block, cfg.BaudRate)
	setDataBits(block, cfg.DataBits)
	setStopBits(block, cfg.StopBits)
	setParity(block, cfg.Parity)
	setFlowControl(block, cfg.FlowControl)
}
