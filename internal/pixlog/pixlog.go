package pixlog

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a structured logging field.
type Field = zap.Field

// ---- Field helpers ----

func String(key, val string) Field         { return zap.String(key, val) }
func Bool(key string, val bool) Field       { return zap.Bool(key, val) }
func Int(key string, val int) Field         { return zap.Int(key, val) }
func Int64(key string, val int64) Field     { return zap.Int64(key, val) }
func Uint64(key string, val uint64) Field   { return zap.Uint64(key, val) }
func Float64(key string, val float64) Field { return zap.Float64(key, val) }
func Duration(key string, d time.Duration) Field {
	return zap.Duration(key, d)
}
func Any(key string, val any) Field { return zap.Any(key, val) }
func Error(err error) Field        { return zap.Error(err) }

// Logger is the project-wide logging interface.
type Logger interface {
	// Named returns a child logger with the given component name appended.
	Named(name string) Logger
	// With returns a child logger that includes the provided fields.
	With(fields ...Field) Logger

	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// ---- Global logger accessors ----

var (
	globalMu     sync.RWMutex
	globalLogger Logger = NewZap(zap.NewNop())
)

// L returns the current global logger.
func L() Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	return l
}

// ReplaceGlobal swaps the global logger implementation.
func ReplaceGlobal(l Logger) {
	if l == nil {
		return
	}
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// ---- zap-backed implementation ----

type zapLogger struct {
	base *zap.Logger
}

// NewZap wraps a zap logger. A nil logger yields a no-op logger.
func NewZap(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{base: l}
}

// NewDevelopment returns a human-readable logger at the given level.
func NewDevelopment(level zapcore.Level) (Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return NewZap(l), nil
}

// Unwrap exposes the underlying zap logger, e.g. for Sync on shutdown.
func Unwrap(l Logger) *zap.Logger {
	if zl, ok := l.(*zapLogger); ok {
		return zl.base
	}
	return nil
}

func (l *zapLogger) Named(name string) Logger {
	if name == "" {
		return l
	}
	return &zapLogger{base: l.base.Named(name)}
}

func (l *zapLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	return &zapLogger{base: l.base.With(fields...)}
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.base.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.base.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.base.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.base.Error(msg, fields...) }
