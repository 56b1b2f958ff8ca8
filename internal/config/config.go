package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port         string `yaml:"port" env:"SERVER_PORT"`
		Mode         string `yaml:"mode" env:"SERVER_MODE"`
		ReadTimeout  string `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout string `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MinConns        int    `yaml:"min_conns" env:"DB_MIN_CONNS"`
		MaxConns        int    `yaml:"max_conns" env:"DB_MAX_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
	} `yaml:"database"`

	Artifacts struct {
		Root              string `yaml:"root" env:"ARTIFACT_ROOT"`
		PublicPath        string `yaml:"public_path" env:"ARTIFACT_PUBLIC_PATH"`
		MaxFileSize       int64  `yaml:"max_file_size" env:"ARTIFACT_MAX_FILE_SIZE"`
		ReconcileInterval string `yaml:"reconcile_interval" env:"ARTIFACT_RECONCILE_INTERVAL"`
		OrphanGracePeriod string `yaml:"orphan_grace_period" env:"ARTIFACT_ORPHAN_GRACE_PERIOD"`
	} `yaml:"artifacts"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Seed struct {
		SampleData bool `yaml:"sample_data" env:"SEED_SAMPLE_DATA"`
	} `yaml:"seed"`
}

// DefaultMaxFileSize is the per-artifact cap (5 MiB)
const DefaultMaxFileSize int64 = 5 << 20

// LoadConfig loads configuration from a .env file, a YAML file and environment variables,
// in increasing order of precedence.
func LoadConfig(configPath string) (*Config, error) {
	// A missing .env is normal outside development
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}
	setDefaults(config)

	if configPath != "" {
		file, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(file, config); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// Defaults and environment only
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
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
	config.Server.ReadTimeout = "15s"
	config.Server.WriteTimeout = "30s"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "studentdb"
	config.Database.SSLMode = "disable"
	config.Database.MinConns = 5
	config.Database.MaxConns = 20
	config.Database.ConnMaxLifetime = "1h"

	config.Artifacts.Root = "uploads"
	config.Artifacts.PublicPath = "/uploads"
	config.Artifacts.MaxFileSize = DefaultMaxFileSize
	config.Artifacts.ReconcileInterval = "1h"
	config.Artifacts.OrphanGracePeriod = "24h"

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if config.Database.MaxConns <= 0 {
		return fmt.Errorf("database max_conns must be positive")
	}
	if config.Database.MinConns < 0 || config.Database.MinConns > config.Database.MaxConns {
		return fmt.Errorf("database min_conns must be between 0 and max_conns")
	}

	if strings.TrimSpace(config.Artifacts.Root) == "" {
		return fmt.Errorf("artifact root is required")
	}
	if config.Artifacts.MaxFileSize <= 0 {
		return fmt.Errorf("artifact max_file_size must be positive")
	}
	if !strings.HasPrefix(config.Artifacts.PublicPath, "/") {
		return fmt.Errorf("artifact public_path must start with /")
	}

	durations := map[string]string{
		"database conn_max_lifetime":    config.Database.ConnMaxLifetime,
		"server read_timeout":           config.Server.ReadTimeout,
		"server write_timeout":          config.Server.WriteTimeout,
		"artifacts reconcile_interval":  config.Artifacts.ReconcileInterval,
		"artifacts orphan_grace_period": config.Artifacts.OrphanGracePeriod,
	}
	for name, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     net.JoinHostPort(c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.DBName,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return dsn.String()
}

// Duration parses one of the already validated duration fields
func Duration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}
