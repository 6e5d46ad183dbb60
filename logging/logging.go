// Package logging holds the process-wide logger shared by the tetraview
// packages.
package logging

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	once      sync.Once
	singleton *log.Logger
)

// Default returns the shared logger, building it on first use.
func Default() *log.Logger {
	once.Do(func() {
		singleton = New(os.Stderr, log.InfoLevel)
	})
	return singleton
}

// New builds a logger with the options every tetraview logger uses.
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
		Prefix:          "tetraview",
	})
}

// SetLevel parses level ("debug", "info", "warn", "error") and applies it to
// the shared logger.
func SetLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	Default().SetLevel(lvl)
	return nil
}

// Discard returns a logger that drops everything; tests use it to keep
// output quiet.
func Discard() *log.Logger {
	return New(io.Discard, log.FatalLevel)
}

// Or returns l when non-nil, otherwise the shared logger.
func Or(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return Default()
}
