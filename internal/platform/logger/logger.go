package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/planvox/planvox-api/internal/config"
)

// Setup builds the application's JSON logger from the configured level,
// installs it as the slog default, and returns it. An unrecognized level
// falls back to info with a warning on stderr.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	level, ok := parseLevel(cfg.LogLevel)
	if !ok {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Warn(
			"invalid log level configured, using default level",
			"configured_level", cfg.LogLevel,
			"default_level", "info")
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	// Package-level slog calls route through the same handler.
	slog.SetDefault(log)

	return log, nil
}

// parseLevel maps a config string to its slog level, case-insensitively.
// The second return is false when the string is unrecognized; the level is
// then info.
func parseLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
