// Package logger provides charmbracelet/log loggers for the battserve components.
//
// Loggers write to stderr: in server mode stdout carries the msgpack stream.
package logger

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New creates a new component logger that follows the global log level.
func New(prefix string) *log.Logger {
	return NewWithWriter(os.Stderr, prefix)
}

// NewWithWriter creates a component logger writing to w
func NewWithWriter(w io.Writer, prefix string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		ReportCaller:    false,
		ReportTimestamp: log.GetLevel() <= log.DebugLevel,
		Formatter:       log.TextFormatter,
		Level:           log.GetLevel(),
	})
}
