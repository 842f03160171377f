// Package config loads registrar settings from a YAML file and the
// environment.
//
// Config file locations (priority order):
//  1. $REGISTRAR_CONFIG
//  2. ./registrar.yaml
//  3. $XDG_CONFIG_HOME/registrar/config.yaml
//  4. ~/.config/registrar/config.yaml
//  5. /etc/registrar/config.yaml
//
// Fields tagged with env are overridden by the named environment variable
// after the file is read.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultDriver      = "sqlite"
	defaultDSN         = "./registrar.db"
	defaultBusyTimeout = 5 * time.Second
	defaultLogLevel    = "info"
)

// Load finds and loads the config file, or starts from defaults if none is
// found. Environment overrides apply in both cases.
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		cfg := DefaultConfig()
		if err := cfg.applyEnv(); err != nil {
			return nil, "", err
		}
		return cfg, "", cfg.Validate()
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, path, err
	}
	cfg.applyDefaults()

	return &cfg, path, cfg.Validate()
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns a local SQLite setup
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Database: DatabaseConfig{
			Driver:      defaultDriver,
			DSN:         defaultDSN,
			BusyTimeout: Duration(defaultBusyTimeout),
		},
		Logging: LoggingConfig{Level: defaultLogLevel},
	}
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Database.Driver == "" {
		c.Database.Driver = defaultDriver
	}
	if c.Database.DSN == "" && c.Database.Driver == defaultDriver {
		c.Database.DSN = defaultDSN
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = Duration(defaultBusyTimeout)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// Validate rejects settings the store cannot open
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required for driver %s", c.Database.Driver)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

// Summary returns a one-line description that is safe to log
func (c *Config) Summary() string {
	dsn := c.Database.DSN
	if c.Database.Driver == "postgres" {
		dsn = "<redacted>"
	}
	return fmt.Sprintf("driver=%s dsn=%s log=%s", c.Database.Driver, dsn, c.Logging.Level)
}
