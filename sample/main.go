package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	serial "github.com/samuelventura/go-comport"
)

//(cd sample; go run . --port COM3 --baud 115200)
//(cd sample; go run . --loopback)
func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()
	serial.SetLogger(logger)
	serial.EnableTrace(cfg.Log.Trace)

	portCfg, err := cfg.Port.serialConfig()
	if err != nil {
		logger.Fatal("Invalid port configuration", zap.Error(err))
	}

	host := serial.DefaultHost()
	if cfg.Loopback {
		loop := serial.NewLoopbackHost()
		loop.AddLoopback(portCfg.Path)
		host = loop
	}

	port, err := serial.OpenHost(host, portCfg)
	if err != nil {
		logger.Fatal("Failed to open port", zap.Stringer("config", portCfg), zap.Error(err))
	}
	defer port.Close()
	logger.Info("Port opened", zap.Stringer("config", portCfg))

	buf := make([]byte, 512)
	for {
		if _, err := port.Write([]byte(cfg.Command)); err != nil {
			logger.Error("Write failed", zap.Error(err))
		}
		n, err := port.Read(buf)
		switch {
		case errors.Is(err, serial.ErrTimeout):
			logger.Warn("No reply", zap.Duration("timeout", port.Timeout()))
		case err != nil:
			logger.Fatal("Read failed", zap.Error(err))
		default:
			logger.Info("Reply", zap.ByteString("data", buf[:n]), zap.Int("len", n))
		}
		time.Sleep(cfg.Interval)
	}
}
