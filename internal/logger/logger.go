// Package logger writes verbose diagnostics to stderr. Nothing is printed
// unless verbose mode is on (--verbose, or a compile run with verbose set).
// Lines are "LEVEL message" with no timestamp.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	verbose atomic.Bool

	mu   sync.RWMutex
	sink = zapcore.Lock(zapcore.AddSync(os.Stderr))
	log  = build(sink)
)

// enabled ties every level to the verbose switch.
var enabled = zap.LevelEnablerFunc(func(zapcore.Level) bool {
	return verbose.Load()
})

func build(w zapcore.WriteSyncer) *zap.SugaredLogger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey, enc.CallerKey, enc.NameKey = "", "", ""
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.ConsoleSeparator = " "
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), w, enabled)
	return zap.New(core).Sugar()
}

// SetVerbose turns verbose output on or off.
func SetVerbose(v bool) { verbose.Store(v) }

// IsVerbose reports whether verbose output is on.
func IsVerbose() bool { return verbose.Load() }

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	sink = zapcore.Lock(zapcore.AddSync(w))
	log = build(sink)
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// Debug logs a step-level message when verbose.
func Debug(format string, args ...any) { current().Debugf(format, args...) }

// Info logs a progress message when verbose.
func Info(format string, args ...any) { current().Infof(format, args...) }

// Warn logs a recoverable problem when verbose.
func Warn(format string, args ...any) { current().Warnf(format, args...) }

// Section prints a "=== name ===" divider between pipeline stages.
func Section(name string) {
	if !verbose.Load() {
		return
	}
	mu.RLock()
	defer mu.RUnlock()
	fmt.Fprintf(sink, "\n=== %s ===\n", name)
}

// Sync flushes buffered log entries.
func Sync() { _ = current().Sync() }
