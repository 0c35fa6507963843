// Package logger implements a logging adapter using zerolog.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.trai.ch/ebb/internal/core/ports"
)

var _ ports.Logger = (*Logger)(nil)

// Logger implements ports.Logger using zerolog.
type Logger struct {
	zl zerolog.Logger
}

// New creates a Logger writing human-readable output to stderr at info level.
func New() *Logger {
	return NewWith("info", "console", os.Stderr)
}

// NewWith creates a Logger with an explicit level, format ("console" or
// "json") and destination.
func NewWith(level, format string, w io.Writer) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return &Logger{
		zl: zerolog.New(w).Level(lvl).With().Timestamp().Logger(),
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string) {
	l.zl.Debug().Msg(msg)
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.zl.Info().Msg(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.zl.Warn().Msg(msg)
}

// Error logs an error.
func (l *Logger) Error(err error) {
	l.zl.Error().Err(err).Msg("operation failed")
}
