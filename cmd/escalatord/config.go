// Package main provides the Escalator daemon CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the daemon configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Rules      RulesConfig      `yaml:"rules"`
	Scanner    ScannerConfig    `yaml:"scanner"`
	Notify     NotifyConfig     `yaml:"notify"`
	Events     EventsConfig     `yaml:"events"`
	Verbose    bool             `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	HTTPAddress    string        `yaml:"http_address"`    // API listen address (default: :8080)
	MetricsAddress string        `yaml:"metrics_address"` // Prometheus listen address (default: :9090)
	TokenTTL       time.Duration `yaml:"token_ttl"`       // API token lifetime (default: 24h)
	RequestTimeout time.Duration `yaml:"request_timeout"` // Escalation request timeout (default: 60s)
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite database file path
}

// ClickHouseConfig contains the optional history archive settings.
type ClickHouseConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Addresses     []string      `yaml:"addresses"`
	Database      string        `yaml:"database"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	Compression   bool          `yaml:"compression"`
	RetentionDays int           `yaml:"retention_days"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// RulesConfig contains rule set settings.
type RulesConfig struct {
	Path  string `yaml:"path"`  // Rule set YAML file
	Watch bool   `yaml:"watch"` // Reload automatically when the file changes
}

// ScannerConfig contains overdue scanner settings.
type ScannerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Interval    time.Duration `yaml:"interval"`    // Sweep interval (default: 5m)
	Concurrency int           `yaml:"concurrency"` // Concurrent escalations per sweep
}

// NotifyConfig contains notification channel settings.
type NotifyConfig struct {
	Pacing   PacingConfig  `yaml:"pacing"`
	Email    EmailConfig   `yaml:"email"`
	SMS      GatewayConfig `yaml:"sms"`
	WhatsApp GatewayConfig `yaml:"whatsapp"`
	Push     GatewayConfig `yaml:"push"`
}

// PacingConfig limits outbound notification rate.
type PacingConfig struct {
	PerSecond float64 `yaml:"per_second"` // 0 disables pacing
	Burst     int     `yaml:"burst"`
}

// EmailConfig contains SMTP settings.
type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// GatewayConfig contains settings for a webhook-backed channel gateway.
type GatewayConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	APIKey  string `yaml:"api_key"`
}

// EventsConfig contains event stream settings.
type EventsConfig struct {
	Buffer int `yaml:"buffer"` // Event channel capacity
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
	if c.Server.TokenTTL == 0 {
		c.Server.TokenTTL = 24 * time.Hour
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 60 * time.Second
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/escalator.db"
	}
	if c.Rules.Path == "" {
		c.Rules.Path = "rules.yaml"
	}
	if c.Scanner.Interval == 0 {
		c.Scanner.Interval = 5 * time.Minute
	}
	if c.Scanner.Concurrency == 0 {
		c.Scanner.Concurrency = 4
	}
	if c.Events.Buffer == 0 {
		c.Events.Buffer = 100
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Scanner.Interval < 0 {
		return fmt.Errorf("scanner.interval must not be negative")
	}
	if c.Notify.Pacing.PerSecond < 0 {
		return fmt.Errorf("notify.pacing.per_second must not be negative")
	}
	if c.ClickHouse.Enabled && len(c.ClickHouse.Addresses) == 0 {
		return fmt.Errorf("clickhouse.addresses is required when clickhouse is enabled")
	}
	if c.Notify.Email.Enabled {
		if c.Notify.Email.Host == "" {
			return fmt.Errorf("notify.email.host is required when email is enabled")
		}
		if c.Notify.Email.From == "" {
			return fmt.Errorf("notify.email.from is required when email is enabled")
		}
	}
	for name, gw := range map[string]GatewayConfig{
		"sms":      c.Notify.SMS,
		"whatsapp": c.Notify.WhatsApp,
		"push":     c.Notify.Push,
	} {
		if gw.Enabled && gw.URL == "" {
			return fmt.Errorf("notify.%s.url is required when %s is enabled", name, name)
		}
	}
	return nil
}
