// Package log wires structured logging and CLI progress reporting for the
// engine. Every component logs through a zerolog.Logger value obtained from
// New() or Console(); nothing reaches for the global zerolog logger directly so that
// callers can instantiate the engine more than once per process with
// independent logging sinks (§9 Design Notes, "Global state").
package log

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New builds a component-scoped logger writing to w (os.Stderr by default
// when w is nil) with the given component name attached to every record.
func New(component string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(w).With().Timestamp().Str("component", component).Logger()
}

// Console returns a human-readable console logger, used by the CLI entry
// points where JSON output would be noise.
func Console(component string) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(w).With().Timestamp().Str("component", component).Logger()
}
