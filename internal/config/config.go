package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Auth    AuthConfig    `yaml:"auth"`
	Week    WeekConfig    `yaml:"week"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig selects the persistence driver. "sqlite" is the shared
// multi-device backend; "file" is the offline single-device snapshot.
type StorageConfig struct {
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`
	FilePath   string `yaml:"file_path"`
}

// AuthConfig controls API-key authentication. When disabled every request
// operates on DefaultFamily, which is what the file driver wants.
type AuthConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DefaultFamily string `yaml:"default_family"`
}

// WeekConfig anchors the weekly cycle. Anchor is a lowercase weekday name
// and defaults to friday; Timezone is an IANA zone name, empty for local.
type WeekConfig struct {
	Anchor   string `yaml:"anchor"`
	Timezone string `yaml:"timezone"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load(path string) (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Driver:     "sqlite",
			SQLitePath: "minutebank.db",
			FilePath:   "minutebank.json",
		},
		Auth: AuthConfig{
			Enabled:       true,
			DefaultFamily: "local",
		},
		Week: WeekConfig{
			Anchor: "friday",
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path == "" {
		path = os.Getenv("MINUTEBANK_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("MINUTEBANK_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("MINUTEBANK_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MINUTEBANK_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if driver := os.Getenv("MINUTEBANK_STORAGE_DRIVER"); driver != "" {
		cfg.Storage.Driver = driver
	}
	if dbPath := os.Getenv("MINUTEBANK_SQLITE_PATH"); dbPath != "" {
		cfg.Storage.SQLitePath = dbPath
	}
	if filePath := os.Getenv("MINUTEBANK_FILE_PATH"); filePath != "" {
		cfg.Storage.FilePath = filePath
	}
	if level := os.Getenv("MINUTEBANK_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	// The offline snapshot driver has no key store to authenticate against.
	if cfg.Storage.Driver == "file" {
		cfg.Auth.Enabled = false
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Storage.Driver {
	case "sqlite", "file":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if _, err := c.WeekAnchor(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// WeekAnchor parses the configured anchor weekday.
func (c Config) WeekAnchor() (time.Weekday, error) {
	switch c.Week.Anchor {
	case "", "friday":
		return time.Friday, nil
	case "saturday":
		return time.Saturday, nil
	case "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	case "tuesday":
		return time.Tuesday, nil
	case "wednesday":
		return time.Wednesday, nil
	case "thursday":
		return time.Thursday, nil
	}
	return 0, fmt.Errorf("unknown week anchor %q", c.Week.Anchor)
}

// Location resolves the configured timezone, defaulting to the local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Week.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Week.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Week.Timezone, err)
	}
	return loc, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
