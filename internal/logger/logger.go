// Package logger builds the process-wide slog logger. Every component takes
// it by constructor injection; nothing in the repo logs through the default
// logger.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/inference-billing-ledger/internal/config"
)

// NewLogger creates a JSON slog.Logger at the configured level. Unrecognized
// level names fall back to info. Source locations are recorded only at debug,
// where the extra cost is acceptable.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})
	logger := slog.New(handler)

	logger.Info("logger initialized", "level", level)

	return logger
}

func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
