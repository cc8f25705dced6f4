package obslog

import (
	"fmt"

	"github.com/joeycumines/logiface"
)

// logifaceAdapter implements Logger by forwarding entries to a
// logiface.Logger[logiface.Event]. The Builder chain returned by Build is
// nil-safe by design (a disabled level yields a nil *Builder whose methods
// are no-ops), so Log never needs to re-check IsEnabled itself.
type logifaceAdapter struct {
	logger *logiface.Logger[logiface.Event]
}

// NewLogiface adapts a logiface logger (as obtained from a typed
// logiface.Logger[E].Logger() call) into this package's Logger interface,
// so scheduler, promise and pmll can be pointed at any backend logiface
// has an implementation for (zerolog, logrus, slog, stumpy, ...) without
// depending on logiface directly themselves.
func NewLogiface(logger *logiface.Logger[logiface.Event]) Logger {
	return &logifaceAdapter{logger: logger}
}

func (a *logifaceAdapter) IsEnabled(level Level) bool {
	if a.logger == nil {
		return false
	}
	threshold := a.logger.Level()
	return threshold != logiface.LevelDisabled && toLogifaceLevel(level) <= threshold
}

func (a *logifaceAdapter) Log(e Entry) {
	if a.logger == nil {
		return
	}

	b := a.logger.Build(toLogifaceLevel(e.Level))
	if e.Category != "" {
		b = b.Str("category", e.Category)
	}
	if e.Resource != "" {
		b = b.Str("resource", e.Resource)
	}
	for k, v := range e.Context {
		b = b.Str(k, fmt.Sprint(v))
	}
	if e.Err != nil {
		b = b.Err(e.Err)
	}
	b.Log(e.Message)
}

// toLogifaceLevel maps this package's ascending-severity Level onto
// logiface's syslog-derived Level, where smaller values are more severe.
func toLogifaceLevel(level Level) logiface.Level {
	switch level {
	case LevelDebug:
		return logiface.LevelDebug
	case LevelInfo:
		return logiface.LevelInformational
	case LevelWarn:
		return logiface.LevelWarning
	case LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}
