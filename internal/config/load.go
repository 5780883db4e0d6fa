package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for all environment variables, e.g.
// PLANVOX_DATABASE_URL maps to the database.url key.
const envPrefix = "PLANVOX"

// Load reads configuration from environment variables and an optional
// config file. Environment variables take precedence over values from the
// config file, which takes precedence over defaults.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine: environment variables can carry the
		// full configuration.
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers a default for every known key. Viper only maps
// environment variables for keys it has seen, so even required settings
// without a sensible default get an empty placeholder here.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.url", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.max_attempts", 3)
	v.SetDefault("queue.retry_base_delay", time.Second)
	v.SetDefault("queue.rate_limit", 10)
	v.SetDefault("queue.rate_window", time.Minute)
	v.SetDefault("queue.job_timeout", 5*time.Minute)
	v.SetDefault("queue.reconcile_interval", 5*time.Minute)

	v.SetDefault("speech.provider_name", "acme")
	v.SetDefault("speech.provider_url", "")
	v.SetDefault("speech.api_key", "")
	v.SetDefault("speech.model", "standard-v1")
	v.SetDefault("speech.default_voice", "")
	v.SetDefault("speech.request_timeout", time.Minute)

	v.SetDefault("storage.nats_url", "")
	v.SetDefault("storage.bucket", "speech-audio")
}
