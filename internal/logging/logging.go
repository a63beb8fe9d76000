// Package logging builds the process-wide slog logger and the tagged
// child loggers the wiring hands to each pipeline component.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New creates a console slog.Logger at the configured level. Unknown
// level strings fall back to debug so misconfiguration is loud, not quiet.
func New(level string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler)
}

// ForComponent tags a child logger so every line from one part of the
// pipeline carries the same component attribute.
func ForComponent(logger *slog.Logger, name string) *slog.Logger {
	return logger.With("component", name)
}

func parseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
