package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue"    validate:"required"`
	Speech   SpeechConfig   `mapstructure:"speech"   validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"  validate:"required"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication settings. The service validates
// bearer tokens signed with the shared secret; TokenLifetimeMinutes bounds
// tokens it issues for service-to-service calls.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// QueueConfig contains the Redis-backed job queue settings: delivery
// concurrency, the retry policy, and the provider-side rate limit
// (RateLimit dequeues per RateWindow).
type QueueConfig struct {
	RedisAddr      string        `mapstructure:"redis_addr"       validate:"required"`
	RedisDB        int           `mapstructure:"redis_db"         validate:"gte=0"`
	Concurrency    int           `mapstructure:"concurrency"      validate:"required,gt=0"`
	MaxAttempts    int           `mapstructure:"max_attempts"     validate:"required,gt=0"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" validate:"required"`
	RateLimit      int           `mapstructure:"rate_limit"       validate:"required,gt=0"`
	RateWindow     time.Duration `mapstructure:"rate_window"      validate:"required"`
	JobTimeout     time.Duration `mapstructure:"job_timeout"      validate:"required"`

	// ReconcileInterval is how often the background sweep re-checks
	// schemes stuck in the processing state for missed completions.
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval" validate:"required"`
}

// SpeechConfig contains the external speech provider settings.
type SpeechConfig struct {
	ProviderName   string        `mapstructure:"provider_name"   validate:"required"`
	ProviderURL    string        `mapstructure:"provider_url"    validate:"required,url"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"           validate:"required"`
	DefaultVoice   string        `mapstructure:"default_voice"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"required"`
}

// StorageConfig contains the object storage settings for generated audio.
type StorageConfig struct {
	NATSURL string `mapstructure:"nats_url" validate:"required"`
	Bucket  string `mapstructure:"bucket"   validate:"required"`
}
