package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns the structured JSON logger used across the session core.
// PORTAL_LOG_LEVEL selects the level (debug|info|warn|error), default info.
func New() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("PORTAL_LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

// NewNop returns a logger that discards everything; for tests.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
