// Package obslog provides the structured logging interface shared by
// scheduler, promise and pmll.
//
// It is a package-level cross-cutting concern rather than a per-instance
// configuration surface: a scheduler, a promise chain and a hardened queue
// all want the same shape of structured event ("what happened, to which
// resource, at what severity"), and callers that want a specific backend
// (logiface, zerolog, a test spy) implement Logger once and pass it through
// the WithLogger option of scheduler and promise. pmll has no such option:
// a Queue uses the Global logger in effect when Create is called.
package obslog

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Level is the severity of a log entry.
type Level int32

const (
	// LevelDebug is for detailed diagnostic information.
	LevelDebug Level = iota
	// LevelInfo is for general informational messages.
	LevelInfo
	// LevelWarn is for warning conditions that do not abort the operation.
	LevelWarn
	// LevelError is for error conditions.
	LevelError
)

// String returns the textual form of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int32(l))
	}
}

// Entry is a single structured log record.
type Entry struct {
	Level     Level
	Category  string // "scheduler", "promise", "pmll"
	Resource  string // resource_id / promise id, when applicable
	Message   string
	Context   map[string]any
	Err       error
	Timestamp time.Time
}

// Logger is the structured logging interface implemented by callers who
// want to observe scheduler/promise/pmll internals.
type Logger interface {
	Log(Entry)
	IsEnabled(Level) bool
}

// noOpLogger discards every entry. It is the default when no logger is
// configured, so the hot paths never pay for formatting.
type noOpLogger struct{}

// NewNoOp returns a Logger that discards all entries.
func NewNoOp() Logger { return noOpLogger{} }

func (noOpLogger) Log(Entry)          {}
func (noOpLogger) IsEnabled(Level) bool { return false }

// textLogger is a minimal Logger implementation writing to a func(string),
// used by tests and simple callers that don't want a full logging
// framework. Production callers are expected to adapt
// github.com/joeycumines/logiface or similar.
type textLogger struct {
	level atomic.Int32
	mu    sync.Mutex
	write func(string)
}

// NewText creates a Logger that formats entries as a single line of text
// and passes them to write. Entries below level are dropped before write
// is ever called.
func NewText(level Level, write func(string)) Logger {
	l := &textLogger{write: write}
	l.level.Store(int32(level))
	return l
}

func (l *textLogger) IsEnabled(level Level) bool {
	return level >= Level(l.level.Load())
}

func (l *textLogger) Log(e Entry) {
	if !l.IsEnabled(e.Level) {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	line := fmt.Sprintf("%s %s [%s]", e.Timestamp.Format("15:04:05.000"), e.Level, e.Category)
	if e.Resource != "" {
		line += " resource=" + e.Resource
	}
	line += " " + e.Message
	for k, v := range e.Context {
		line += fmt.Sprintf(" %s=%v", k, v)
	}
	if e.Err != nil {
		line += ": " + e.Err.Error()
	}
	l.write(line)
}

var (
	globalMu     sync.RWMutex
	globalLogger Logger = noOpLogger{}
)

// SetGlobal installs the package-level fallback logger used by any
// constructor that was not given an explicit WithLogger option.
func SetGlobal(logger Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if logger == nil {
		logger = noOpLogger{}
	}
	globalLogger = logger
}

// Global returns the current package-level fallback logger.
func Global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}
