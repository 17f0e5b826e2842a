// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Storage drivers.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Notifier drivers.
const (
	NotifierRedis  = "redis"
	NotifierMemory = "memory"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"false"`

	// Cache (Redis)
	RedisURL          string        `env:"REDIS_URL,required"`
	RedisPoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"20"`
	RedisMinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"4"`
	RedisDialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`

	// Public base URL used to build image URLs for the local storage driver
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	SentryDSN string `env:"SENTRY_DSN" envDefault:""`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Uploads (default 100MB)
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"104857600"`

	// Blob storage
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"local"`
	StorageRoot   string `env:"STORAGE_ROOT" envDefault:"./storage"`

	S3Bucket          string        `env:"S3_BUCKET"`
	S3Region          string        `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint        string        `env:"S3_ENDPOINT"`
	S3AccessKeyID     string        `env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string        `env:"S3_SECRET_ACCESS_KEY"`
	S3PublicURL       string        `env:"S3_PUBLIC_URL"`
	S3Presign         bool          `env:"S3_PRESIGN" envDefault:"false"`
	S3PresignExpiry   time.Duration `env:"S3_PRESIGN_EXPIRY" envDefault:"1h"`

	// Change notifications
	NotifierDriver  string        `env:"NOTIFIER_DRIVER" envDefault:"redis"`
	EventTTL        time.Duration `env:"EVENT_TTL" envDefault:"5s"`
	SSEPollInterval time.Duration `env:"SSE_POLL_INTERVAL" envDefault:"500ms"`

	// Rate limiting
	RateLimitAPIEnabled bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitTokenRPM   int  `env:"RATE_LIMIT_TOKEN_RPM" envDefault:"120"`
	RateLimitTokenBurst int  `env:"RATE_LIMIT_TOKEN_BURST" envDefault:"20"`
	RateLimitIPEnabled  bool `env:"RATE_LIMIT_IP_ENABLED" envDefault:"true"`
	RateLimitIPRPS      int  `env:"RATE_LIMIT_IP_RPS" envDefault:"50"`
	RateLimitIPBurst    int  `env:"RATE_LIMIT_IP_BURST" envDefault:"100"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Body size limit for non-upload requests in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks enum and range constraints env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StorageLocal:
		if c.StorageRoot == "" {
			errs = append(errs, errors.New("STORAGE_ROOT is required for the local storage driver"))
		}
	case StorageS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 storage driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	switch c.NotifierDriver {
	case NotifierRedis, NotifierMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFIER_DRIVER %q", c.NotifierDriver))
	}

	if c.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_SIZE must be positive"))
	}
	if c.EventTTL <= 0 {
		errs = append(errs, errors.New("EVENT_TTL must be positive"))
	}
	if c.SSEPollInterval <= 0 {
		errs = append(errs, errors.New("SSE_POLL_INTERVAL must be positive"))
	}
	if c.RedisPoolSize <= 0 {
		errs = append(errs, errors.New("REDIS_POOL_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
