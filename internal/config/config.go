// Package config reads the application configuration from environment
// variables.
package config

import (
	"os"
	"strconv"

	"surveyclean/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Jobs     JobConfig
	Paths    PathConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// JobConfig holds job execution settings
type JobConfig struct {
	MaxConcurrent int64
}

// PathConfig holds file system paths
type PathConfig struct {
	UploadDir string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	return &Config{
		Database: DatabaseConfig{URL: url},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "debug"),
		},
		Jobs: JobConfig{
			MaxConcurrent: int64(getEnvIntOrDefault("MAX_CONCURRENT_JOBS", 4)),
		},
		Paths: PathConfig{
			UploadDir: getEnvOrDefault("UPLOAD_DIR", "./uploads"),
		},
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
