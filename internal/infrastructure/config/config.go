package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mrops-br/product-catalog-api/internal/domain"
)

// Repository drivers
const (
	RepositoryMemory   = "memory"
	RepositoryDatabase = "database"
)

type Config struct {
	Server   ServerConfig
	OTLP     OTLPConfig
	Log      LogConfig
	Database DatabaseConfig
	Catalog  CatalogConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ShutdownTimeout time.Duration
}

// Addr returns host:port for the HTTP listener
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type OTLPConfig struct {
	Endpoint    string
	ServiceName string
	Environment string
	Enabled     bool
}

type LogConfig struct {
	Level string
}

type DatabaseConfig struct {
	Repository   string
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

type CatalogConfig struct {
	LowStockThreshold int
}

// LoadConfig loads configuration from environment variables, reading a .env file first when present
func LoadConfig() (*Config, error) {
	// a missing .env is fine; the process environment still applies
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "8080"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		OTLP: OTLPConfig{
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "product-catalog-api"),
			Environment: getEnv("OTEL_ENVIRONMENT", "development"),
			Enabled:     getEnvAsBool("OTEL_ENABLED", true),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Repository:   strings.ToLower(getEnv("REPOSITORY_DRIVER", RepositoryMemory)),
			Driver:       strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:          getEnv("DB_DSN", "file:catalog.db"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		},
		Catalog: CatalogConfig{
			LowStockThreshold: getEnvAsInt("CATALOG_LOW_STOCK_THRESHOLD", domain.DefaultLowStockThreshold),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the application cannot start with
func (c *Config) Validate() error {
	switch c.Database.Repository {
	case RepositoryMemory, RepositoryDatabase:
	default:
		return fmt.Errorf("unsupported REPOSITORY_DRIVER %q (supported: %s, %s)",
			c.Database.Repository, RepositoryMemory, RepositoryDatabase)
	}
	if c.Catalog.LowStockThreshold <= 0 {
		return fmt.Errorf("CATALOG_LOW_STOCK_THRESHOLD must be positive, got %d", c.Catalog.LowStockThreshold)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SERVER_SHUTDOWN_TIMEOUT must be positive, got %s", c.Server.ShutdownTimeout)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
