// Package logger configures structured JSON logging for the service.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New creates a JSON slog.Logger at the given level and installs it as the
// process default. Attributes with credential-like keys are redacted.
func New(level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: redactSensitive,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a config string to a slog level, defaulting to info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func redactSensitive(_ []string, a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, "[redacted]")
	}
	return a
}

// isSensitiveKey checks if a key might contain credential data
func isSensitiveKey(key string) bool {
	switch strings.ToLower(key) {
	case "password", "api_key", "apikey", "token", "secret",
		"authorization", "auth", "credential", "credentials":
		return true
	}
	return false
}
