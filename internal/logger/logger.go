// Package logger holds the process-wide zap logger.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu    sync.RWMutex
	sugar *zap.SugaredLogger
	once  sync.Once
)

// Init builds the global logger once. "production" logs JSON at info level
// with ISO-8601 timestamps, "test" discards everything and any other value
// gets the colored development console.
func Init(env string) {
	once.Do(func() {
		base, err := build(env)
		if err != nil {
			base = zap.NewNop()
		}
		set(base.Sugar())
	})
}

func build(env string) (*zap.Logger, error) {
	switch env {
	case "production":
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg.Build()
	case "test":
		return zap.NewNop(), nil
	default:
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	}
}

func set(l *zap.SugaredLogger) {
	mu.Lock()
	sugar = l
	mu.Unlock()
}

// Get returns the global logger, initializing a development one on first use.
func Get() *zap.SugaredLogger {
	mu.RLock()
	l := sugar
	mu.RUnlock()
	if l == nil {
		Init("development")
		return Get()
	}
	return l
}

// With returns a child logger carrying the given key/value pairs.
func With(keysAndValues ...interface{}) *zap.SugaredLogger {
	return Get().With(keysAndValues...)
}

// Named returns a child logger for a component, e.g. "scheduler".
func Named(component string) *zap.SugaredLogger {
	return Get().Named(component)
}

// Replace swaps the global logger and returns a func restoring the previous
// one. Tests use it with zaptest/observer.
func Replace(l *zap.Logger) (restore func()) {
	Init("test")
	prev := Get()
	set(l.Sugar())
	return func() { set(prev) }
}

// Sync flushes buffered entries. Call it before the process exits.
func Sync() {
	mu.RLock()
	l := sugar
	mu.RUnlock()
	if l != nil {
		_ = l.Sync()
	}
}
