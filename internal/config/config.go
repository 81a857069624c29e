package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Object storage drivers
const (
	StorageS3    = "s3"
	StorageLocal = "local"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port        string `yaml:"port" env:"SERVER_PORT"`
		Mode        string `yaml:"mode" env:"SERVER_MODE"`
		StoragePath string `yaml:"storage_path" env:"SERVER_STORAGE_PATH"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		SQLitePath      string `yaml:"sqlite_path" env:"DB_SQLITE_PATH"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
		SeedDemoData    bool   `yaml:"seed_demo_data" env:"DB_SEED_DEMO_DATA"`
	} `yaml:"database"`

	Storage struct {
		Driver          string        `yaml:"driver" env:"STORAGE_DRIVER"`
		Bucket          string        `yaml:"bucket" env:"STORAGE_BUCKET"`
		Region          string        `yaml:"region" env:"STORAGE_REGION"`
		Endpoint        string        `yaml:"endpoint" env:"STORAGE_ENDPOINT"`
		PathStyle       bool          `yaml:"path_style" env:"STORAGE_PATH_STYLE"`
		AccessKeyID     string        `yaml:"access_key_id" env:"STORAGE_ACCESS_KEY_ID"`
		SecretAccessKey string        `yaml:"secret_access_key" env:"STORAGE_SECRET_ACCESS_KEY"`
		SignedURLExpiry time.Duration `yaml:"signed_url_expiry" env:"STORAGE_SIGNED_URL_EXPIRY"`
		PublicBaseURL   string        `yaml:"public_base_url" env:"STORAGE_PUBLIC_BASE_URL"`
	} `yaml:"storage"`

	Reconciliation struct {
		MaxAttempts    int           `yaml:"max_attempts" env:"RECONCILE_MAX_ATTEMPTS"`
		InitialBackoff time.Duration `yaml:"initial_backoff" env:"RECONCILE_INITIAL_BACKOFF"`
		Multiplier     float64       `yaml:"multiplier" env:"RECONCILE_BACKOFF_MULTIPLIER"`
	} `yaml:"reconciliation"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
		Path    string `yaml:"path" env:"METRICS_PATH"`
	} `yaml:"metrics"`
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.StoragePath = "uploads"

	config.Database.Driver = DriverPostgres
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "ceeja"
	config.Database.SSLMode = "disable"
	config.Database.SQLitePath = "ceeja.db"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	// Documents live in the "documents" bucket; signed links last one hour.
	config.Storage.Driver = StorageLocal
	config.Storage.Bucket = "documents"
	config.Storage.Region = "us-east-1"
	config.Storage.SignedURLExpiry = time.Hour

	// 5 attempts, 1s doubling: 1+2+4+8+16.
	config.Reconciliation.MaxAttempts = 5
	config.Reconciliation.InitialBackoff = time.Second
	config.Reconciliation.Multiplier = 2

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Metrics.Enabled = true
	config.Metrics.Path = "/metrics"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case DriverPostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if _, err := time.ParseDuration(config.Database.ConnMaxLifetime); err != nil {
			return fmt.Errorf("invalid database connection max lifetime: %w", err)
		}
	case DriverSQLite:
		if config.Database.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	switch config.Storage.Driver {
	case StorageS3:
		if config.Storage.Bucket == "" {
			return fmt.Errorf("storage bucket is required for the s3 driver")
		}
	case StorageLocal:
	default:
		return fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}
	if config.Storage.SignedURLExpiry <= 0 {
		return fmt.Errorf("signed url expiry must be positive")
	}

	if config.Reconciliation.MaxAttempts < 1 {
		return fmt.Errorf("reconciliation max attempts must be at least 1")
	}
	if config.Reconciliation.InitialBackoff < 0 {
		return fmt.Errorf("reconciliation initial backoff cannot be negative")
	}
	if config.Reconciliation.Multiplier < 1 {
		return fmt.Errorf("reconciliation backoff multiplier must be >= 1")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Mode, "production")
}
