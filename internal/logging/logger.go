package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a JSON slog logger writing to stdout. Every record carries the
// service name and environment.
func New(level, app, env string) *slog.Logger {
	return NewWithWriter(os.Stdout, level, app, env)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level, app, env string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(handler).With(slog.String("app", app), slog.String("env", env))
}

// ParseLevel maps a level name to a slog level. Unknown names yield info.
func ParseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
