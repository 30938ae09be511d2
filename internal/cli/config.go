package cli

import (
	"os"
	"time"
)

type Config struct {
	BaseURL    string // Required: Lectern API base URL
	StateFile  string // Optional: path to SQLite session state file (default: ./lectern.db)
	Passphrase string // Optional: passphrase sealing tokens at rest; empty stores them in the clear

	Env       string        // Environment (dev, staging, prod) (default: dev)
	LogLevel  string        // Log level (debug, info, warn, error) (default: info)
	LogFormat string        // Log format (json, text) (default: text)
	Timeout   time.Duration // Per-command timeout (default: 2m, covers large uploads)
}

func LoadConfig() Config {
	cfg := Config{
		BaseURL:    os.Getenv("LECTERN_BASE_URL"),
		StateFile:  getEnvOrDefault("LECTERN_STATE_FILE", "lectern.db"),
		Passphrase: os.Getenv("LECTERN_STATE_PASSPHRASE"),
		Env:        getEnvOrDefault("ENV", "dev"),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:  getEnvOrDefault("LOG_FORMAT", "text"),
		Timeout:    getEnvDurationOrDefault("LECTERN_TIMEOUT", 2*time.Minute),
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
