package logger

import (
	"log/slog"
	"os"
	"strings"

	gcplogger "github.com/screensound/catalog/internal/infra/platform/gcp/logger"
)

// New builds the process logger.
//   - gcp (default): JSON with Cloud Logging keys
//   - text: key=value lines for terminals and the console CLI
func New(provider string, level slog.Level) *slog.Logger {
	switch strings.ToLower(provider) {
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	case "gcp":
		return gcplogger.New(level)
	default:
		return gcplogger.New(level)
	}
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "-4", "debug":
		return slog.LevelDebug
	case "0", "info":
		return slog.LevelInfo
	case "4", "warn", "warning":
		return slog.LevelWarn
	case "8", "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
