// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelEnv is the environment variable consulted for the log level.
const LevelEnv = "LOG_LEVEL"

// Options controls logger construction.
type Options struct {
	// Debug forces debug level regardless of LOG_LEVEL.
	Debug bool

	// JSON switches the handler from text to JSON.
	JSON bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// ParseLevel converts a level name (debug, info, warn, error) into a
// slog.Level. Unknown or empty names yield info.
func ParseLevel(s string) slog.Level {
	if s == "" {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// New builds a logger for the given options.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := ParseLevel(os.Getenv(LevelEnv))
	if opts.Debug {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return slog.New(handler)
}

// Setup builds a logger and installs it as the slog default.
func Setup(opts Options) *slog.Logger {
	logger := New(opts)
	slog.SetDefault(logger)
	return logger
}
