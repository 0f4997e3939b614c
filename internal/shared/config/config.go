package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Extract   ExtractConfig
	Output    OutputConfig
	Warehouse WarehouseConfig
	Database  DatabaseConfig
	Telemetry TelemetryConfig
}

type ExtractConfig struct {
	Path string
}

type OutputConfig struct {
	Dir string
}

type WarehouseConfig struct {
	Enabled bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
	MetricsPort  string
}

func Load() (*Config, error) {

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	cfg := &Config{
		Extract: ExtractConfig{
			Path: getEnv("EXTRACT_PATH", ""),
		},
		Output: OutputConfig{
			Dir: getEnv("OUTPUT_DIR", "reports"),
		},
		Warehouse: WarehouseConfig{
			Enabled: getBoolEnv("WAREHOUSE_ENABLED", false),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "churnscope"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "churnscope"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "churnscope"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9090"),
		},
	}

	// Validate required fields
	if cfg.Extract.Path == "" {
		return nil, fmt.Errorf("EXTRACT_PATH is required")
	}
	if cfg.Warehouse.Enabled && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required when WAREHOUSE_ENABLED=true")
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
