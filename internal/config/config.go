package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Server
	APIPort int

	// Storage
	AttachmentStoragePath string
	MaxAttachmentSize     int64

	// Content conversion
	ConverterURL     string
	ConverterTimeout time.Duration

	// Cleanup
	CleanupSchedule string
	CleanupMaxAge   time.Duration

	// Search
	SearchScanMultiplier int

	// Logging
	LogLevel string

	// Security
	APIKey         string
	AllowedOrigins string
	AppEnv         string

	// Rate Limiting
	RateLimitRequests float64
	RateLimitBurst    int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	// DATABASE_URL (default: local SQLite file next to the attachment root)
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "email-mcp.db"
	}

	// API_PORT (default: 8080)
	apiPort := os.Getenv("API_PORT")
	if apiPort == "" {
		cfg.APIPort = 8080
	} else {
		port, err := strconv.Atoi(apiPort)
		if err != nil {
			return nil, fmt.Errorf("API_PORT must be a valid integer: %w", err)
		}
		cfg.APIPort = port
	}

	// ATTACHMENT_STORAGE_PATH (default: ./attachments)
	cfg.AttachmentStoragePath = os.Getenv("ATTACHMENT_STORAGE_PATH")
	if cfg.AttachmentStoragePath == "" {
		cfg.AttachmentStoragePath = "./attachments"
	}

	// MAX_ATTACHMENT_SIZE in bytes (default: 50 MB)
	if raw := os.Getenv("MAX_ATTACHMENT_SIZE"); raw != "" {
		size, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("MAX_ATTACHMENT_SIZE must be a valid integer: %w", err)
		}
		cfg.MaxAttachmentSize = size
	} else {
		cfg.MaxAttachmentSize = 50 * 1024 * 1024
	}

	// CONVERTER_URL: endpoint of the external rich-document converter.
	// Empty means the structural fallback handles everything.
	cfg.ConverterURL = os.Getenv("CONVERTER_URL")

	// CONVERTER_TIMEOUT (default: 30s)
	if raw := os.Getenv("CONVERTER_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("CONVERTER_TIMEOUT must be a valid duration: %w", err)
		}
		cfg.ConverterTimeout = d
	} else {
		cfg.ConverterTimeout = 30 * time.Second
	}

	// CLEANUP_SCHEDULE cron expression (default: daily at 03:00)
	cfg.CleanupSchedule = os.Getenv("CLEANUP_SCHEDULE")
	if cfg.CleanupSchedule == "" {
		cfg.CleanupSchedule = "0 3 * * *"
	}

	// CLEANUP_MAX_AGE_DAYS (default: 30)
	if raw := os.Getenv("CLEANUP_MAX_AGE_DAYS"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("CLEANUP_MAX_AGE_DAYS must be a valid integer: %w", err)
		}
		cfg.CleanupMaxAge = time.Duration(days) * 24 * time.Hour
	} else {
		cfg.CleanupMaxAge = 30 * 24 * time.Hour
	}

	// SEARCH_SCAN_MULTIPLIER bounds the client-side scan at
	// page_size * multiplier examined messages (default: 10)
	if raw := os.Getenv("SEARCH_SCAN_MULTIPLIER"); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("SEARCH_SCAN_MULTIPLIER must be a valid integer: %w", err)
		}
		cfg.SearchScanMultiplier = m
	} else {
		cfg.SearchScanMultiplier = 10
	}

	// LOG_LEVEL (default: info)
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	// Security configuration
	cfg.APIKey = os.Getenv("API_KEY")
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")
	cfg.AppEnv = os.Getenv("APP_ENV")
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}

	// Rate limiting configuration
	if rps := os.Getenv("RATE_LIMIT_REQUESTS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimitRequests = v
		}
	} else {
		cfg.RateLimitRequests = 10.0
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimitBurst = v
		}
	} else {
		cfg.RateLimitBurst = 20
	}

	return cfg, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProduction(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DatabaseURL cannot be empty")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("APIPort must be between 1 and 65535")
	}
	if c.AttachmentStoragePath == "" {
		return fmt.Errorf("AttachmentStoragePath cannot be empty")
	}
	if c.MaxAttachmentSize <= 0 {
		return fmt.Errorf("MaxAttachmentSize must be positive")
	}
	if c.SearchScanMultiplier < 1 {
		return fmt.Errorf("SearchScanMultiplier must be at least 1")
	}
	if c.CleanupMaxAge <= 0 {
		return fmt.Errorf("CleanupMaxAge must be positive")
	}
	return nil
}

// ValidateProduction performs additional validation for production environment
func (c *Config) ValidateProduction() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required in production")
	}

	if c.AllowedOrigins == "" {
		return fmt.Errorf("ALLOWED_ORIGINS is required in production")
	}

	return nil
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.Int("api_port", c.APIPort),
		slog.String("storage_path", c.AttachmentStoragePath),
		slog.Int64("max_attachment_size", c.MaxAttachmentSize),
		slog.Bool("converter_configured", c.ConverterURL != ""),
		slog.String("cleanup_schedule", c.CleanupSchedule),
		slog.Duration("cleanup_max_age", c.CleanupMaxAge),
		slog.Int("search_scan_multiplier", c.SearchScanMultiplier),
		slog.String("log_level", c.LogLevel),
		slog.String("app_env", c.AppEnv),
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.Float64("rate_limit_rps", c.RateLimitRequests),
		slog.Int("rate_limit_burst", c.RateLimitBurst),
	)
}
