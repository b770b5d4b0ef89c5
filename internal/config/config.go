// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	DataDir          string // Base directory for the runs database (always absolute)
	Port             int
	LogLevel         string
	DevMode          bool
	MaxQubits        int  // Ceiling on problem size (state dim 2^n, operators 4^n)
	MemoryCheck      bool // Compare dense-storage estimates against available memory
	SearchWorkers    int  // Goroutines evaluating grid points
	RunRetentionDays int  // Days of run history to keep
}

// Load reads configuration from environment variables, with .env support.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("QFOLIO_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("QFOLIO_PORT", 8080),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		MaxQubits:        getEnvAsInt("QFOLIO_MAX_QUBITS", 14),
		MemoryCheck:      getEnvAsBool("QFOLIO_MEMORY_CHECK", true),
		SearchWorkers:    getEnvAsInt("QFOLIO_SEARCH_WORKERS", 4),
		RunRetentionDays: getEnvAsInt("QFOLIO_RUN_RETENTION_DAYS", 30),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MaxQubits < 1 {
		return fmt.Errorf("invalid max qubits: %d", c.MaxQubits)
	}
	if c.SearchWorkers < 1 {
		return fmt.Errorf("invalid search workers: %d", c.SearchWorkers)
	}
	if c.RunRetentionDays < 1 {
		return fmt.Errorf("invalid run retention days: %d", c.RunRetentionDays)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
