// Package logging builds the service's zerolog logger.
//
// Components receive a zerolog.Logger value and derive children with a "comp"
// field, e.g. log.With().Str("comp", "dispatcher").Logger().
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

var globalsOnce sync.Once

// New returns a logger writing JSON lines to stdout, or a human readable console
// stream when console is true. Unknown levels fall back to info.
func New(level string, console bool) zerolog.Logger {
	var out io.Writer = os.Stdout
	if console {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: consoleTimeFormat}
	}
	return NewWithWriter(out, level)
}

// NewWithWriter is New with an explicit sink.
func NewWithWriter(w io.Writer, level string) zerolog.Logger {
	globalsOnce.Do(func() { zerolog.ErrorFieldName = "err" })
	return zerolog.New(w).
		Level(ParseLevel(level, zerolog.InfoLevel)).
		With().
		Timestamp().
		Str("svc", "remindr").
		Logger()
}

// Component derives a child logger tagged with the component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("comp", name).Logger()
}

// ParseLevel maps a case-insensitive level name to a zerolog level.
func ParseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return def
	}
}
