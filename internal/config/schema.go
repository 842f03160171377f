package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig selects the relational engine
type DatabaseConfig struct {
	Driver      string   `yaml:"driver" env:"REGISTRAR_DB_DRIVER"` // sqlite, postgres
	DSN         string   `yaml:"dsn" env:"REGISTRAR_DB_DSN"`       // file path or postgres URL
	BusyTimeout Duration `yaml:"busy_timeout,omitempty" env:"REGISTRAR_DB_BUSY_TIMEOUT"`
}

// LoggingConfig controls the zerolog output
type LoggingConfig struct {
	Level  string `yaml:"level" env:"REGISTRAR_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"REGISTRAR_LOG_PRETTY"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
