// Package logging builds the zerolog loggers used for diagnostics.
//
// Progress lines are not logs; they go to stdout through the progress
// reporter. Loggers write to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options configures a logger.
type Options struct {
	// Level is a zerolog level name (trace, debug, info, warn, error).
	// Default: info
	Level string

	// Format is "console" or "json".
	// Default: console
	Format string

	// Output is where log lines go.
	// Default: os.Stderr
	Output io.Writer

	// Color enables ANSI colors for the console format.
	Color bool
}

// New returns a logger configured by opts.
func New(opts Options) (zerolog.Logger, error) {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.Level == "" {
		opts.Level = "info"
	}

	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level: %w", err)
	}

	var w io.Writer
	switch opts.Format {
	case "", "console":
		w = zerolog.ConsoleWriter{
			Out:        opts.Output,
			TimeFormat: time.TimeOnly,
			NoColor:    !opts.Color,
		}
	case "json":
		w = opts.Output
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", opts.Format)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// WithRunID tags l with a fresh run identifier so lines from concurrent or
// repeated runs can be told apart.
func WithRunID(l zerolog.Logger) zerolog.Logger {
	return l.With().Str("run_id", uuid.NewString()).Logger()
}
