// Package config provides environment configuration for the client.
package config

import (
	"os"
	"strconv"
	"time"

	"armonia/internal/api"
)

// Config holds all configuration for the application.
type Config struct {
	// Remote API
	APIBaseURL      string
	KnowledgeBaseID string

	// Local storage
	DBPath string

	// History lifecycle
	HistoryTTL      time.Duration
	CleanupInterval time.Duration

	// Behavior
	StreamReplies bool

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		APIBaseURL:      getEnv("ARMONIA_API_URL", api.DefaultBaseURL),
		KnowledgeBaseID: getEnv("ARMONIA_KB_ID", ""),

		DBPath: getEnv("ARMONIA_DB_PATH", ""),

		HistoryTTL:      getDurationEnv("ARMONIA_HISTORY_TTL", 24*time.Hour),
		CleanupInterval: getDurationEnv("ARMONIA_CLEANUP_INTERVAL", time.Hour),

		StreamReplies: getBoolEnv("ARMONIA_STREAM", false),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
