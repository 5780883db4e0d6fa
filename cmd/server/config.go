package main

import (
	"fmt"
	"log/slog"

	"github.com/planvox/planvox-api/internal/config"
)

// loadAppConfig loads configuration from the environment and the optional
// config file, then logs a summary that never includes secret values.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	slog.Debug("Database configuration", "url_present", cfg.Database.URL != "")
	slog.Debug("Auth configuration", "jwt_secret_present", cfg.Auth.JWTSecret != "")
	if cfg.Speech.ProviderURL != "" {
		slog.Debug("Speech provider configuration",
			"provider", cfg.Speech.ProviderName,
			"model", cfg.Speech.Model)
	}

	return cfg, nil
}
