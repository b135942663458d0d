// Package logutils builds the process logger.
package logutils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// StderrFile selects stderr as the log destination.
const StderrFile = "-"

// Options configures New.
type Options struct {
	// Level is one of: debug, info, warn, error, fatal.
	Level string
	// File receives JSON lines, appended across runs. StderrFile or an
	// empty value logs to Stderr instead.
	File string
	// Stderr defaults to os.Stderr.
	Stderr io.Writer
	// Pretty renders human readable lines when logging to Stderr.
	Pretty bool
}

// New returns a logger and a closer for the underlying file. Logs never go
// to stdout, which carries command output and the MCP stdio transport.
func New(opts Options) (zerolog.Logger, func(), error) {
	closer := func() {}

	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Logger{}, closer, err
	}

	var writer io.Writer = opts.Stderr
	if writer == nil {
		writer = os.Stderr
	}

	switch {
	case opts.File != "" && opts.File != StderrFile:
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("create logs dir: %w", err)
		}

		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("open log file: %w", err)
		}
		closer = func() { _ = f.Close() }
		writer = f
	case opts.Pretty:
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.Kitchen}
	}

	l := zerolog.New(writer).
		With().
		Timestamp().
		Logger().
		Level(lvl)

	return l, closer, nil
}
