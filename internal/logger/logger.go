// Package logger configures the zerolog logger shared by all commands.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup builds a logger from config values.
//   - level: trace, debug, info, warn, error, fatal, panic
//   - format: "json" for machine-readable output, "pretty" for terminals
//
// Diagnostics go to stderr so command output stays pipeable.
func Setup(level, format string) zerolog.Logger {
	var writer io.Writer = os.Stderr
	if format == "pretty" {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}
