// Package main provides the PulseBoard server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/pulseboard/internal/checker"
)

// Config represents the server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Checker    checker.Config   `yaml:"checker"`
	Notifier   NotifierConfig   `yaml:"notifier"`
	Rules      RulesConfig      `yaml:"rules"`
	Verbose    bool             `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	HTTPAddress    string `yaml:"http_address"`    // API listen address (default: :8080)
	MetricsAddress string `yaml:"metrics_address"` // Prometheus listen address (default: :9090)
	RateLimitPerIP int    `yaml:"rate_limit_per_ip"`
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ClickHouseConfig contains telemetry storage settings.
type ClickHouseConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Addresses     []string `yaml:"addresses"`
	Database      string   `yaml:"database"`
	Username      string   `yaml:"username"`
	Password      string   `yaml:"password"`
	Compression   bool     `yaml:"compression"`
	RetentionDays int      `yaml:"retention_days"`
}

// NotifierConfig contains notification dispatch settings.
type NotifierConfig struct {
	MaxPerWindow int           `yaml:"max_per_window"`
	Window       time.Duration `yaml:"window"`
}

// RulesConfig contains alert rule seeding settings.
type RulesConfig struct {
	SeedFile string `yaml:"seed_file"`
	Watch    bool   `yaml:"watch"` // reload seed file on change
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8080"
	}
	if c.Server.MetricsAddress == "" {
		c.Server.MetricsAddress = ":9090"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/pulseboard.db"
	}
	if len(c.ClickHouse.Addresses) == 0 {
		c.ClickHouse.Addresses = []string{"localhost:9000"}
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "pulseboard"
	}
	if c.Notifier.MaxPerWindow == 0 {
		c.Notifier.MaxPerWindow = 10
	}
	if c.Notifier.Window == 0 {
		c.Notifier.Window = time.Minute
	}
	c.Checker.SetDefaults()
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.ClickHouse.Enabled && len(c.ClickHouse.Addresses) == 0 {
		return fmt.Errorf("clickhouse.addresses is required when ClickHouse is enabled")
	}
	if c.Rules.Watch && c.Rules.SeedFile == "" {
		return fmt.Errorf("rules.seed_file is required when rules.watch is enabled")
	}
	if c.Notifier.MaxPerWindow < 0 {
		return fmt.Errorf("notifier.max_per_window must not be negative")
	}
	return nil
}
