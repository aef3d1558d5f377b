package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New constructs a JSON slog logger on stdout that tags every record with the service name.
func New() *slog.Logger {
	return NewTo(os.Stdout, os.Getenv("LOG_LEVEL"))
}

// NewTo is New with an explicit destination and level name. The CLI logs to
// stderr so stdout carries only the digest.
func NewTo(w io.Writer, level string) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(handler).With("service", "digest")
}

func parseLevel(level string) slog.Leveler {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
