package logger

import (
	"io"

	"github.com/charmbracelet/log"
)

// Discard returns a logger that drops everything, handy in tests
func Discard() *log.Logger {
	return log.New(io.Discard)
}
