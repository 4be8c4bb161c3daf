// Package logging builds the process-wide zerolog root logger. Components
// derive their own sub-loggers with log.With().Str("component", ...).
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns the root logger. LOG_FORMAT=console switches to the
// human-readable writer for local development; the default is JSON.
func New() zerolog.Logger {
	level := zerolog.InfoLevel
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		level = lvl
	}

	var log zerolog.Logger
	if os.Getenv("LOG_FORMAT") == "console" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log = zerolog.New(os.Stderr)
	}

	return log.Level(level).With().Timestamp().Logger()
}
