package observability

import (
	"log/slog"
	"os"
	"strings"

	"hermannm.dev/devlog"
)

// SetupLogger installs the default slog logger. Dev mode gets human-readable
// colored output, everything else gets JSON lines.
func SetupLogger(dev bool, level string) *slog.Logger {
	logLevel := ParseLevel(level)

	var handler slog.Handler
	if dev {
		handler = devlog.NewHandler(os.Stdout, &devlog.Options{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
