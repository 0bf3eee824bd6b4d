// Package monitoring holds the package-level diagnostic loggers shared by the
// motion core. Library code never writes to stdout directly; it goes through
// Logf or one of the three streams below so binaries and tests can redirect
// or mute it.
package monitoring

import (
	"io"
	"log"
	"sync"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

var (
	streamsMu   sync.RWMutex
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures the three logging streams.
// Pass nil for any writer to disable that stream.
//
//   - ops: actionable warnings and rejected input
//   - diag: lifecycle and tuning context (registration, warm-up complete)
//   - trace: high-frequency per-frame telemetry
func SetLogWriters(ops, diag, trace io.Writer) {
	streamsMu.Lock()
	defer streamsMu.Unlock()
	opsLogger = newLogger("[wmv] ", ops)
	diagLogger = newLogger("[wmv] ", diag)
	traceLogger = newLogger("[wmv] ", trace)
}

// SetLegacyLogger routes all three streams to a single writer.
// Pass nil to disable all logging.
func SetLegacyLogger(w io.Writer) {
	SetLogWriters(w, w, w)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

func logTo(l *log.Logger, format string, args ...interface{}) {
	if l != nil {
		l.Printf(format, args...)
	}
}

// Opsf logs to the ops stream. When no ops writer is configured the message
// falls back to Logf so rejected input is never silent.
func Opsf(format string, args ...interface{}) {
	streamsMu.RLock()
	l := opsLogger
	streamsMu.RUnlock()
	if l == nil {
		Logf(format, args...)
		return
	}
	l.Printf(format, args...)
}

// Diagf logs to the diag stream.
func Diagf(format string, args ...interface{}) {
	streamsMu.RLock()
	l := diagLogger
	streamsMu.RUnlock()
	logTo(l, format, args...)
}

// Tracef logs to the trace stream.
func Tracef(format string, args ...interface{}) {
	streamsMu.RLock()
	l := traceLogger
	streamsMu.RUnlock()
	logTo(l, format, args...)
}

// TraceEnabled reports whether a trace writer is configured, so hot paths
// can skip building arguments.
func TraceEnabled() bool {
	streamsMu.RLock()
	defer streamsMu.RUnlock()
	return traceLogger != nil
}
