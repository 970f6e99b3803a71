package config

import (
	"os"
	"strconv"

	"airlens/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Data     DataConfig
	Engine   EngineConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// DatabaseConfig holds the optional run-store connection. When URL is
// empty the service keeps runs in memory only.
type DatabaseConfig struct {
	URL string
}

// DataConfig holds data ingestion settings
type DataConfig struct {
	FilePath string
}

// EngineConfig holds analysis defaults
type EngineConfig struct {
	ForecastHorizon    int
	OutlierMethod      string
	OutlierSensitivity string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Data: DataConfig{
			FilePath: getEnvOrDefault("DATA_FILE", ""),
		},
		Engine: EngineConfig{
			ForecastHorizon:    getEnvIntOrDefault("FORECAST_HORIZON", 24),
			OutlierMethod:      getEnvOrDefault("OUTLIER_METHOD", "mad"),
			OutlierSensitivity: getEnvOrDefault("OUTLIER_SENSITIVITY", "auto"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Engine.ForecastHorizon <= 0 {
		return errors.ConfigInvalid("FORECAST_HORIZON must be positive")
	}
	switch cfg.Engine.OutlierMethod {
	case "mad", "iqr", "zscore":
	default:
		return errors.ConfigInvalid("OUTLIER_METHOD must be one of mad, iqr, zscore")
	}
	switch cfg.Engine.OutlierSensitivity {
	case "low", "medium", "high", "auto":
	default:
		return errors.ConfigInvalid("OUTLIER_SENSITIVITY must be one of low, medium, high, auto")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
