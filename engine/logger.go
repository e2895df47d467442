package engine

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	logger atomic.Pointer[zap.Logger]
	nop    = zap.NewNop()
)

// Logger returns the package logger, a no-op logger until SetLogger is
// called.
func Logger() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return nop
}

// SetLogger replaces the package logger. It may be called while kernel operations
// are running; nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	logger.Store(l)
}
