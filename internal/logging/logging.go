// Package logging configures the process-wide console logger.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns a console logger writing to stderr. Debug events are
// emitted only when verbose is set.
func New(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// For tags a logger with the component emitting through it.
func For(log zerolog.Logger, component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
