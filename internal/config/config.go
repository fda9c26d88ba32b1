package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port string

	// Database configuration
	DBType            string
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUser            string
	DBPassword        string
	DBConnectionLimit int
	DBLogLevel        string

	// Sync engine configuration
	SyncLogCap          int
	SyncIntervalDefault int
	SyncHistoryLimit    int
	AutoSyncEnabled     bool
	NotifyDedup         bool

	// External provider configuration
	ProviderName    string
	ProviderBaseURL string
	ProviderTimeout time.Duration
}

// Load loads configuration from an optional .env file and the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	} else if err == nil {
		log.Printf("Loaded environment from .env")
	}

	cfg := &Config{
		Port:                getEnv("PORT", "3000"),
		DBType:              strings.ToLower(getEnv("DB_TYPE", "sqlite")),
		DBHost:              getEnv("DB_HOST", ""),
		DBPort:              getEnv("DB_PORT", ""),
		DBDatabase:          getEnv("DB_DATABASE", ""),
		DBUser:              getEnv("DB_USER", ""),
		DBPassword:          getEnv("DB_PASSWORD", ""),
		DBConnectionLimit:   getEnvAsInt("DB_CONNECTION_LIMIT", 5),
		DBLogLevel:          getEnv("DB_LOG_LEVEL", "warn"),
		SyncLogCap:          getEnvAsInt("SYNC_LOG_CAP", 1000),
		SyncIntervalDefault: getEnvAsInt("SYNC_INTERVAL_DEFAULT", 5),
		SyncHistoryLimit:    getEnvAsInt("SYNC_HISTORY_LIMIT", 50),
		AutoSyncEnabled:     getEnvAsBool("AUTO_SYNC_ENABLED", true),
		NotifyDedup:         getEnvAsBool("NOTIFY_DEDUP", false),
		ProviderName:        getEnv("PROVIDER_NAME", "Google Fit"),
		ProviderBaseURL:     getEnv("PROVIDER_BASE_URL", "https://www.googleapis.com/fitness/v1/users/me"),
		ProviderTimeout:     getEnvAsDuration("PROVIDER_TIMEOUT", 10*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields and ranges
func (c *Config) Validate() error {
	if c.DBDatabase == "" {
		return fmt.Errorf("DB_DATABASE is required")
	}
	if c.IsNetworkDB() {
		if c.DBHost == "" {
			return fmt.Errorf("DB_HOST is required for DB_TYPE %s", c.DBType)
		}
		if c.DBUser == "" {
			return fmt.Errorf("DB_USER is required for DB_TYPE %s", c.DBType)
		}
	}
	if c.SyncLogCap <= 0 {
		return fmt.Errorf("SYNC_LOG_CAP must be positive, got %d", c.SyncLogCap)
	}
	if c.SyncIntervalDefault <= 0 {
		return fmt.Errorf("SYNC_INTERVAL_DEFAULT must be positive, got %d", c.SyncIntervalDefault)
	}
	if c.SyncHistoryLimit <= 0 {
		return fmt.Errorf("SYNC_HISTORY_LIMIT must be positive, got %d", c.SyncHistoryLimit)
	}
	return nil
}

// IsNetworkDB reports whether the configured database is reached over the network
func (c *Config) IsNetworkDB() bool {
	switch c.DBType {
	case "sqlite", "sqlite3":
		return false
	}
	return true
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
