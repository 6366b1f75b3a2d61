// Package logging sets up the daemon's structured logger.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Options controls the log output.
type Options struct {
	// Debug enables debug level messages.
	Debug bool
	// Console writes human readable lines instead of JSON, for running in
	// the foreground.
	Console bool
}

// New returns the root logger writing to w.
func New(w io.Writer, opts Options) zerolog.Logger {
	if opts.Console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.StampMicro}
	}

	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagged with the component name.
func WithComponent(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
