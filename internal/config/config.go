// Package config loads flight explorer settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"flight_explorer/internal/storage"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all configuration for the flight explorer tools.
// Secrets (passwords, keys) only come from the environment.
type Config struct {
	Database   DatabaseConfig
	ClickHouse ClickHouseConfig
	NATS       NATSConfig
	Fetch      FetchConfig
	API        APIConfig

	DataDir        string        `env:"DATA_DIR" env-default:"data/raw"`
	LogLevel       string        `env:"LOG_LEVEL" env-default:"info"`
	ReloadInterval time.Duration `env:"RELOAD_INTERVAL" env-default:"1h"`
}

// DatabaseConfig selects and addresses the relational store.
type DatabaseConfig struct {
	Driver   string `env:"DB_DRIVER" env-default:"mysql"`
	Host     string `env:"DB_HOST" env-default:"localhost"`
	Port     int    `env:"DB_PORT" env-default:"3306"`
	Name     string `env:"DB_NAME" env-default:"flight_explorer"`
	User     string `env:"DB_USER" env-default:"root"`
	Password string `env:"DB_PASSWORD"`
	Path     string `env:"DB_PATH" env-default:"flight_explorer.db"` // SQLite only
}

// ClickHouseConfig addresses the optional analytics mirror. The mirror is
// disabled while Host is empty.
type ClickHouseConfig struct {
	Host     string `env:"CLICKHOUSE_HOST"`
	Port     int    `env:"CLICKHOUSE_PORT" env-default:"9000"`
	Database string `env:"CLICKHOUSE_DB" env-default:"flight_explorer"`
	User     string `env:"CLICKHOUSE_USER" env-default:"default"`
	Password string `env:"CLICKHOUSE_PASSWORD"`
}

// NATSConfig addresses the reload event bus. Events are dropped while URL is
// empty.
type NATSConfig struct {
	URL              string `env:"NATS_URL"`
	CompletedSubject string `env:"NATS_COMPLETED_SUBJECT" env-default:"flight_explorer.reload.completed"`
	RequestSubject   string `env:"NATS_REQUEST_SUBJECT" env-default:"flight_explorer.reload.requested"`
}

// FetchConfig configures the AeroDataBox client.
type FetchConfig struct {
	APIKey   string        `env:"RAPIDAPI_KEY"`
	APIHost  string        `env:"RAPIDAPI_HOST" env-default:"aerodatabox.p.rapidapi.com"`
	Interval time.Duration `env:"FETCH_INTERVAL" env-default:"1s"`
	Airports []string      `env:"FETCH_AIRPORTS" env-separator:","`
}

// APIConfig configures the dashboard API server.
type APIConfig struct {
	Port        int      `env:"API_PORT" env-default:"8081"`
	RequireAuth bool     `env:"API_AUTH" env-default:"false"`
	Keys        []string `env:"API_KEYS" env-separator:","`
}

// Load reads envFile if it exists, then the process environment. Variables
// already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case storage.DriverMySQL, storage.DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("%w: DB_HOST and DB_NAME are required for %s", ErrInvalid, c.Database.Driver)
		}
		if c.Database.Port <= 0 {
			return fmt.Errorf("%w: DB_PORT must be positive", ErrInvalid)
		}
	case storage.DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: DB_PATH is required for sqlite", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown DB_DRIVER %q", ErrInvalid, c.Database.Driver)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: DATA_DIR is required", ErrInvalid)
	}
	if c.ReloadInterval <= 0 {
		return fmt.Errorf("%w: RELOAD_INTERVAL must be positive", ErrInvalid)
	}
	return nil
}

// ValidateFetch checks the settings the fetch command needs.
func (c *Config) ValidateFetch() error {
	if strings.TrimSpace(c.Fetch.APIKey) == "" {
		return fmt.Errorf("%w: RAPIDAPI_KEY is required", ErrInvalid)
	}
	if strings.TrimSpace(c.Fetch.APIHost) == "" {
		return fmt.Errorf("%w: RAPIDAPI_HOST is required", ErrInvalid)
	}
	if c.Fetch.Interval < 0 {
		return fmt.Errorf("%w: FETCH_INTERVAL must not be negative", ErrInvalid)
	}
	return nil
}

// StoreConfig returns the relational store settings.
func (c *Config) StoreConfig() storage.Config {
	return storage.Config{
		Driver:   c.Database.Driver,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		Database: c.Database.Name,
		User:     c.Database.User,
		Password: c.Database.Password,
		Path:     c.Database.Path,
	}
}

// ClickHouseEnabled reports whether the analytics mirror is configured.
func (c *Config) ClickHouseEnabled() bool {
	return c.ClickHouse.Host != ""
}

// ClickHouseStoreConfig returns the mirror connection settings.
func (c *Config) ClickHouseStoreConfig() storage.ClickHouseConfig {
	return storage.ClickHouseConfig{
		Host:     c.ClickHouse.Host,
		Port:     c.ClickHouse.Port,
		Database: c.ClickHouse.Database,
		User:     c.ClickHouse.User,
		Password: c.ClickHouse.Password,
	}
}
