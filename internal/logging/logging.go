// Package logging centralizes zerolog setup for voicetask.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger. The level is parsed from its
// string form, falling back to info. When console is true the output
// is human-readable; otherwise structured JSON is written to w.
func Setup(w io.Writer, level string, console bool) {
	if w == nil {
		w = os.Stderr
	}
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	log.Logger = zerolog.New(w).Level(parsed).With().Timestamp().Logger()
}

// Component creates a new logger with a component identifier.
// Uses the "cmp" key for consistency with zerolog conventions.
func Component(name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger()
}
