package serial

import (
	"io"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLoop(t *testing.T, host *LoopbackHost, cfg Config) *ComPort {
	t.Helper()
	port, err := OpenHost(host, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { port.Close() })
	return port
}

func TestLoopbackEcho(t *testing.T) {
	host := NewLoopbackHost()
	host.AddLoopback("LOOP1")
	port := openLoop(t, host, NewConfig("LOOP1", 9600))

	n, err := port.Write([]byte{0x41, 0x54, 0x0D, 0x0A})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	buf := make([]byte, 512)
	start := time.Now()
	n, err = port.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x41, 0x54, 0x0D, 0x0A}, buf[:n])
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestLoopbackSilentDeviceTimesOut(t *testing.T) {
	host := NewLoopbackHost()
	host.AddLoopback("LOOP1")
	port := openLoop(t, host, NewConfig("LOOP1", 9600))

	start := time.Now()
	n, err := port.Read(make([]byte, 512))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 450*time.Millisecond)
}

func TestLoopbackAppliesConfig(t *testing.T) {
	host := NewLoopbackHost()
	host.AddLoopback("LOOP1")
	cfg := NewConfig(`\\.\loop1`, 57600).WithParity(OddParity).WithFlowControl(XOnXOff).WithTimeout(40 * time.Millisecond)
	openLoop(t, host, cfg)

	block, ok := host.ControlBlock("LOOP1")
	require.True(t, ok)
	assert.Equal(t, uint32(57600), block.BaudRate)
	assert.Equal(t, byte(oddParity), block.Parity)
	assert.Equal(t, FlagBinary|DtrControlEnable|RtsControlEnable|FlagParity|FlagOutX|FlagInX, block.Flags, "line control bits survive")

	timeouts, ok := host.Timeouts("LOOP1")
	require.True(t, ok)
	assert.Equal(t, uint32(40), timeouts.ReadTotalTimeoutConstant)
}

func TestLoopbackRejectsBadBlock(t *testing.T) {
	host := NewLoopbackHost()
	host.AddLoopback("LOOP1")

	_, err := OpenHost(host, NewConfig("LOOP1", 0).WithPolicy(Strict))
	require.Error(t, err)
	assert.True(t, IsKind(err, Unknown))

	// lenient keeps the port usable
	port := openLoop(t, host, NewConfig("LOOP1", 0))
	block, _ := host.ControlBlock("LOOP1")
	assert.Equal(t, uint32(9600), block.BaudRate)
	_, err = port.Write([]byte("ok"))
	assert.NoError(t, err)
}

func TestLoopbackNotFound(t *testing.T) {
	host := NewLoopbackHost()
	port, err := OpenHost(host, NewConfig("COM404", 9600))
	assert.Nil(t, port)
	assert.True(t, IsKind(err, Unknown))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoopbackExclusive(t *testing.T) {
	host := NewLoopbackHost()
	host.AddLoopback("LOOP1")
	port := openLoop(t, host, NewConfig("LOOP1", 9600))

	_, err := OpenHost(host, NewConfig("LOOP1", 9600))
	assert.ErrorIs(t, err, fs.ErrPermission)

	require.NoError(t, port.Close())
	openLoop(t, host, NewConfig("LOOP1", 9600))
}

func TestLoopbackPartialWrite(t *testing.T) {
	host := NewLoopbackHost()
	host.AddLoopback("LOOP1")
	require.NoError(t, host.SetWriteLimit("LOOP1", 2))
	port := openLoop(t, host, NewConfig("LOOP1", 9600))

	n, err := port.Write([]byte("AT\r\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	buf := make([]byte, 8)
	n, err = port.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "AT", string(buf[:n]))
}

func TestLoopbackPair(t *testing.T) {
	host := NewLoopbackHost()
	host.AddPair("COM98", "COM99")
	a := openLoop(t, host, NewConfig("COM98", 9600).WithTimeout(50*time.Millisecond))
	b := openLoop(t, host, NewConfig("COM99", 9600).WithTimeout(50*time.Millisecond))

	_, err := a.Write([]byte("ping"))
	require.NoError(t, err)

	buf := make([]byte, 2)
	n, err := b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "pi", string(buf[:n]))
	n, err = b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ng", string(buf[:n]))

	_, err = a.Read(buf)
	assert.ErrorIs(t, err, ErrTimeout, "a pair does not echo")

	require.NoError(t, a.SetRTS(true))
	require.NoError(t, a.SetDTR(true))
	status, err := b.ModemStatus()
	require.NoError(t, err)
	assert.True(t, status.CTS())
	assert.True(t, status.DSR())
	assert.True(t, status.DCD())

	require.NoError(t, a.SetRTS(false))
	status, err = b.ModemStatus()
	require.NoError(t, err)
	assert.False(t, status.CTS())
}

func TestLoopbackBreakDropsData(t *testing.T) {
	host := NewLoopbackHost()
	host.AddLoopback("LOOP1")
	port := openLoop(t, host, NewConfig("LOOP1", 9600).WithTimeout(20*time.Millisecond))

	require.NoError(t, port.SetBreak(true))
	_, err := port.Write([]byte("lost"))
	require.NoError(t, err)
	require.NoError(t, port.SetBreak(false))

	_, err = port.Read(make([]byte, 8))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestLoopbackSubMillisecondTimeoutBlocks(t *testing.T) {
	host := NewLoopbackHost()
	host.AddLoopback("LOOP1")
	port := openLoop(t, host, NewConfig("LOOP1", 9600).WithTimeout(900*time.Microsecond))

	done := make(chan error, 1)
	go func() {
		_, err := port.Read(make([]byte, 8))
		done <- err
	}()
	select {
	case err := <-done:
		t.Fatalf("read returned early %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	_, err := port.Write([]byte{1})
	require.NoError(t, err)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("read not released by data")
	}
}

func TestLoopbackCloseWakesReader(t *testing.T) {
	host := NewLoopbackHost()
	host.AddLoopback("LOOP1")
	port := openLoop(t, host, NewConfig("LOOP1", 9600).WithTimeout(0))

	done := make(chan error, 1)
	go func() {
		_, err := port.Read(make([]byte, 8))
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, port.Close())
	select {
	case err := <-done:
		assert.Equal(t, io.EOF, err)
	case <-time.After(time.Second):
		t.Fatal("reader not released by close")
	}
}

func TestSerialEof(t *testing.T) {
	host := NewLoopbackHost()
	host.AddLoopback("LOOP1")
	port, err := OpenHost(host, NewConfig("LOOP1", 9600))
	fatalIfError(t, err)
	defer port.Close()
	err = port.SetReadTimeout(100 * time.Millisecond)
	fatalIfError(t, err)
	err = port.Close()
	fatalIfError(t, err)
	err = port.SetReadTimeout(100 * time.Millisecond)
	if err != io.EOF {
		t.Fatalf("setReadTimeout EOF not detected %v", err)
	}
	_, err = port.Read([]byte{0})
	if err != io.EOF {
		t.Fatalf("read EOF not detected %v", err)
	}
	_, err = port.Write([]byte{0})
	if err != io.EOF {
		t.Fatalf("write EOF not detected %v", err)
	}
}
