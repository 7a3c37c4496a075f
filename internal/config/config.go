// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads application settings from SPIRIT_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Storage drivers.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Mail providers.
const (
	MailNoop = "noop"
	MailSES  = "ses"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"SPIRIT_DB_PATH" envDefault:"./data/spiritevents.db"`
	SessionSecret string `env:"SPIRIT_SESSION_SECRET,required"`
	ServerHost    string `env:"SPIRIT_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"SPIRIT_SERVER_PORT" envDefault:"8080"`
	BaseURL       string `env:"SPIRIT_BASE_URL" envDefault:"http://localhost:8080"`
	Env           string `env:"SPIRIT_ENV" envDefault:"development"`
	LogLevel      string `env:"SPIRIT_LOG_LEVEL" envDefault:"info"`

	// Operator account created on startup when missing
	AdminEmail    string `env:"SPIRIT_ADMIN_EMAIL"`
	AdminPassword string `env:"SPIRIT_ADMIN_PASSWORD"`

	// Object storage
	StorageDriver  string `env:"SPIRIT_STORAGE_DRIVER" envDefault:"local"`
	UploadsDir     string `env:"SPIRIT_UPLOADS_DIR" envDefault:"./uploads"`
	S3Bucket       string `env:"SPIRIT_S3_BUCKET"`
	S3Region       string `env:"SPIRIT_S3_REGION" envDefault:"eu-central-1"`
	S3Endpoint     string `env:"SPIRIT_S3_ENDPOINT"` // MinIO, R2 and other S3-compatible services
	S3AccessKey    string `env:"SPIRIT_S3_ACCESS_KEY"`
	S3SecretKey    string `env:"SPIRIT_S3_SECRET_KEY"`
	S3PublicURL    string `env:"SPIRIT_S3_PUBLIC_URL"`
	S3UsePathStyle bool   `env:"SPIRIT_S3_USE_PATH_STYLE" envDefault:"false"`

	// Orphaned tmp/ uploads older than TmpUploadMaxAge are removed on this schedule
	UploadSweepSchedule string        `env:"SPIRIT_UPLOAD_SWEEP_SCHEDULE" envDefault:"@hourly"`
	TmpUploadMaxAge     time.Duration `env:"SPIRIT_TMP_UPLOAD_MAX_AGE" envDefault:"24h"`
	AuditRetention      time.Duration `env:"SPIRIT_AUDIT_RETENTION" envDefault:"2160h"`

	// Mail
	MailProvider string `env:"SPIRIT_MAIL_PROVIDER" envDefault:"noop"`
	MailFrom     string `env:"SPIRIT_MAIL_FROM"`
	MailTo       string `env:"SPIRIT_MAIL_TO"` // operator inbox for feedback
	SESRegion    string `env:"SPIRIT_SES_REGION" envDefault:"eu-central-1"`
	SESAccessKey string `env:"SPIRIT_SES_ACCESS_KEY"`
	SESSecretKey string `env:"SPIRIT_SES_SECRET_KEY"`
	SESEndpoint  string `env:"SPIRIT_SES_ENDPOINT"`

	// Chat webhook notified about suggestions and feedback
	NotifyWebhookURL    string `env:"SPIRIT_NOTIFY_WEBHOOK_URL"`
	NotifyWebhookSecret string `env:"SPIRIT_NOTIFY_WEBHOOK_SECRET"`
	NotifyWorkers       int    `env:"SPIRIT_NOTIFY_WORKERS" envDefault:"2"`
	NotifyQueueSize     int    `env:"SPIRIT_NOTIFY_QUEUE_SIZE" envDefault:"100"`

	// Cache configuration
	RedisURL     string `env:"SPIRIT_REDIS_URL"`                         // Optional Redis URL for shared caching
	CachePrefix  string `env:"SPIRIT_CACHE_PREFIX" envDefault:"spirit:"` // Redis key prefix
	CacheTTL     int    `env:"SPIRIT_CACHE_TTL" envDefault:"300"`        // Facet cache TTL in seconds
	CacheMaxSize int    `env:"SPIRIT_CACHE_MAX_SIZE" envDefault:"1000"`  // Max memory cache entries

	// MaxMind GeoLite2-Country database used to prefill visitor countries
	GeoIPDBPath string `env:"SPIRIT_GEOIP_DB_PATH"`

	// Public form submissions per client
	FormRateLimit float64 `env:"SPIRIT_FORM_RATE_LIMIT" envDefault:"0.05"` // requests per second
	FormRateBurst int     `env:"SPIRIT_FORM_RATE_BURST" envDefault:"5"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// NotifyEnabled returns true if a chat webhook is configured.
func (c Config) NotifyEnabled() bool {
	return c.NotifyWebhookURL != ""
}

// CacheTTLDuration returns CacheTTL as a duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("SPIRIT_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("SPIRIT_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("SPIRIT_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	switch c.StorageDriver {
	case StorageLocal:
	case StorageS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("SPIRIT_S3_BUCKET is required when SPIRIT_STORAGE_DRIVER=s3")
		}
	default:
		return fmt.Errorf("SPIRIT_STORAGE_DRIVER must be %q or %q, got %q", StorageLocal, StorageS3, c.StorageDriver)
	}

	c.MailProvider = strings.ToLower(strings.TrimSpace(c.MailProvider))
	switch c.MailProvider {
	case MailNoop:
	case MailSES:
		if c.MailFrom == "" {
			return fmt.Errorf("SPIRIT_MAIL_FROM is required when SPIRIT_MAIL_PROVIDER=ses")
		}
	default:
		return fmt.Errorf("SPIRIT_MAIL_PROVIDER must be %q or %q, got %q", MailNoop, MailSES, c.MailProvider)
	}

	if c.NotifyWorkers < 1 {
		return fmt.Errorf("SPIRIT_NOTIFY_WORKERS must be at least 1")
	}
	if c.FormRateLimit <= 0 || c.FormRateBurst < 1 {
		return fmt.Errorf("SPIRIT_FORM_RATE_LIMIT and SPIRIT_FORM_RATE_BURST must be positive")
	}
	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
