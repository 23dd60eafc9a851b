package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue" validate:"required"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// RedisConfig contains the job-status cache settings. The URL is optional:
// with no Redis configured the service runs with caching disabled.
type RedisConfig struct {
	URL       string        `mapstructure:"url" validate:"omitempty,url"`
	StatusTTL time.Duration `mapstructure:"status_ttl"`
}

// AuthConfig contains authentication settings. The JWT secret is the shared
// HS256 secret of the upstream auth provider that issues player tokens.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// LLMConfig contains all generative-image API settings.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName         string `mapstructure:"model_name" validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=1,lte=30"`
}

// StorageConfig contains the sticker object store settings.
type StorageConfig struct {
	SupabaseURL string `mapstructure:"supabase_url" validate:"required,url"`
	ServiceKey  string `mapstructure:"service_key" validate:"required"`
	Bucket      string `mapstructure:"bucket" validate:"required"`
}

// QueueConfig contains the sticker job queue settings.
type QueueConfig struct {
	BatchSize       int           `mapstructure:"batch_size" validate:"required,gt=0,lte=20"`
	InterBatchDelay time.Duration `mapstructure:"inter_batch_delay" validate:"gte=0"`
	JobTimeout      time.Duration `mapstructure:"job_timeout" validate:"required,gt=0"`
}
