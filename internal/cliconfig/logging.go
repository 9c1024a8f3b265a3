package cliconfig

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger writing to w. The level is not set on
// the logger itself; SetLogLevel controls it globally so it can change while
// the process runs.
func NewLogger(w io.Writer, format string) zerolog.Logger {
	if format == LogFormatJSON {
		return zerolog.New(w).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

// SetLogLevel parses level and applies it process-wide.
func SetLogLevel(level string) error {
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(l)
	return nil
}
