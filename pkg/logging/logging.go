// Package logging builds the structured logger shared by every lockstep command.
//
// Human readable text goes to the console; when a log file is requested the same
// records are also written to it as JSON, fanned out with slog-multi.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// Options configures logger construction
type Options struct {
	// Console receives text records (os.Stderr if nil)
	Console io.Writer

	// Verbose lowers the level to debug
	Verbose bool

	// File, if set, also receives every record as JSON
	File string
}

// Logger wraps a slog.Logger and the files it owns
type Logger struct {
	*slog.Logger
	closer io.Closer
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// New builds a logger from the given options
func New(opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	handlers := []slog.Handler{slog.NewTextHandler(console, handlerOpts)}

	var closer io.Closer
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		closer = f
	}

	return &Logger{
		Logger: slog.New(slogmulti.Fanout(handlers...)),
		closer: closer,
	}, nil
}

// Discard returns a logger that drops every record
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
