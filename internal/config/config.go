// Package config loads and finalizes service configuration from TOML files
// and environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/preclear-labs/preclear/pkg/database"
	"github.com/preclear-labs/preclear/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvPreclearEnv             = "PRECLEAR_ENV"
	EnvPreclearShutdownTimeout = "PRECLEAR_SHUTDOWN_TIMEOUT"
	EnvPreclearVersion         = "PRECLEAR_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "PRECLEAR_DB_HOST",
	Port:            "PRECLEAR_DB_PORT",
	Name:            "PRECLEAR_DB_NAME",
	User:            "PRECLEAR_DB_USER",
	Password:        "PRECLEAR_DB_PASSWORD",
	SSLMode:         "PRECLEAR_DB_SSL_MODE",
	MaxOpenConns:    "PRECLEAR_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "PRECLEAR_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "PRECLEAR_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "PRECLEAR_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "PRECLEAR_STORAGE_PROVIDER",
	ContainerName:    "PRECLEAR_STORAGE_CONTAINER_NAME",
	ConnectionString: "PRECLEAR_STORAGE_CONNECTION_STRING",
	Bucket:           "PRECLEAR_STORAGE_BUCKET",
	Region:           "PRECLEAR_STORAGE_REGION",
}

// Config is the root configuration for the PreClear service.
type Config struct {
	Database        database.Config      `toml:"database"`
	Storage         storage.Config       `toml:"storage"`
	Agent           gaconfig.AgentConfig `toml:"agent"`
	Pipeline        PipelineConfig       `toml:"pipeline"`
	ShutdownTimeout string               `toml:"shutdown_timeout"`
	Version         string               `toml:"version"`
}

// Env returns the PRECLEAR_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvPreclearEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and
// environment variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Agent.Merge(&overlay.Agent)
	c.Pipeline.Merge(&overlay.Pipeline)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := FinalizeAgent(&c.Agent); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.Pipeline.Finalize(DefaultPipelineEnv()); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvPreclearShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvPreclearVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvPreclearEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
