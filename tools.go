package serial

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	defLogger    atomic.Pointer[zap.Logger]
	traceEnabled atomic.Bool
)

func init() {
	defLogger.Store(zap.NewNop())
}

// SetLogger replaces the package logger, nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	defLogger.Store(l.Named("serial"))
}

func EnableTrace(enable bool) {
	traceEnabled.Store(enable)
}

func logger() *zap.Logger {
	return defLogger.Load()
}

func trace(msg string, fields ...zap.Field) {
	if traceEnabled.Load() {
		logger().Debug(msg, fields...)
	}
}
