// Package config provides configuration loading and validation from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultMaxBodyBytes caps request bodies when MAX_BODY_BYTES is unset.
const DefaultMaxBodyBytes int64 = 1 << 20

// Config holds all application configuration.
type Config struct {
	LogLevel          string // debug, info, warn, error
	ListenAddr        string // Server listen address (e.g., ":8181")
	DatabasePath      string // SQLite database path
	MetricsListenAddr string // Metrics listener address (e.g., "localhost:9090")
	AuthEnabled       bool   // false disables token checks and token management
	MaxBodyBytes      int64  // Request body limit in bytes
}

// Load parses configuration from environment variables.
// All configuration options have sensible defaults for ease of deployment.
func Load() (*Config, error) {
	logLevel := os.Getenv("LOG_LEVEL")
	listenAddr := os.Getenv("LISTEN_ADDR")
	databasePath := os.Getenv("DATABASE_PATH")
	metricsListenAddr := os.Getenv("METRICS_LISTEN_ADDR")

	// Set defaults for optional fields
	if logLevel == "" {
		logLevel = "info"
	}

	if listenAddr == "" {
		listenAddr = ":8181"
	}

	if databasePath == "" {
		databasePath = "/data/tokend.db"
	}

	if metricsListenAddr == "" {
		metricsListenAddr = "localhost:9090"
	}

	authEnabled := true
	if v := os.Getenv("AUTH_ENABLED"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid AUTH_ENABLED %q: %w", v, err)
		}
		authEnabled = parsed
	}

	maxBodyBytes := DefaultMaxBodyBytes
	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_BODY_BYTES %q: %w", v, err)
		}
		maxBodyBytes = parsed
	}

	cfg := &Config{
		LogLevel:          logLevel,
		ListenAddr:        listenAddr,
		DatabasePath:      databasePath,
		MetricsListenAddr: metricsListenAddr,
		AuthEnabled:       authEnabled,
		MaxBodyBytes:      maxBodyBytes,
	}

	return cfg, nil
}

// Validate checks all configuration constraints.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q (must be: debug, info, warn, error)", c.LogLevel)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	return nil
}
