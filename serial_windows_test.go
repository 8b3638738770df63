//go:build windows

package serial

// com0com-2.2.2.0-x64-fre-signed
// set COMPORT_PAIR=COM98,COM99 to run the pair test

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"
)

func TestWindowsOpenMissing(t *testing.T) {
	port, err := Open(NewConfig("COM255", 9600))
	require.Error(t, err)
	assert.Nil(t, port)
	assert.True(t, IsKind(err, Unknown))
	assert.True(t, errors.Is(err, windows.ERROR_FILE_NOT_FOUND) || errors.Is(err, windows.ERROR_ACCESS_DENIED))
}

func TestWindowsPair(t *testing.T) {
	pair := strings.Split(os.Getenv("COMPORT_PAIR"), ",")
	if len(pair) != 2 {
		t.Skip("COMPORT_PAIR not set")
	}
	a, err := Open(NewConfig(pair[0], 9600))
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(NewConfig(pair[1], 9600).WithTimeout(600 * time.Millisecond))
	require.NoError(t, err)
	defer b.Close()

	n, err := a.Write([]byte("AT\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	require.NoError(t, a.Flush())

	buf := make([]byte, 512)
	got := []byte{}
	for len(got) < 4 {
		n, err = b.Read(buf)
		require.NoError(t, err)
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, "AT\r\n", string(got))

	_, err = b.Read(buf)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestWindowsCommCallsInvalidHandle(t *testing.T) {
	host := DefaultHost()
	h := Handle(windows.InvalidHandle)
	var block ControlBlock
	var timeouts Timeouts
	assert.Error(t, host.GetControlBlock(h, &block))
	assert.Error(t, host.SetControlBlock(h, &block))
	assert.Error(t, host.GetTimeouts(h, &timeouts))
	assert.Error(t, host.SetTimeouts(h, &timeouts))
	assert.Error(t, host.Escape(h, SetDTR))
	_, err := host.ModemStatus(h)
	assert.Error(t, err)
}

// deepModemStatus queries the modem lines from a grown stack so a stack
// copy happens around the kernel32 call.
func deepModemStatus(port *ComPort, depth int) (ModemStatus, error) {
	var pad [256]byte
	if depth > 0 {
		status, err := deepModemStatus(port, depth-1)
		pad[depth%len(pad)] = byte(status)
		return status, err
	}
	return port.ModemStatus()
}

func TestWindowsModemStatusStackGrowth(t *testing.T) {
	pair := strings.Split(os.Getenv("COMPORT_PAIR"), ",")
	if len(pair) != 2 {
		t.Skip("COMPORT_PAIR not set")
	}
	a, err := Open(NewConfig(pair[0], 9600))
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(NewConfig(pair[1], 9600))
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, a.SetRTS(true))
	for i := 0; i < 50; i++ {
		_, err := deepModemStatus(b, 200)
		require.NoError(t, err)
	}
}
