// Package config provides configuration loading for tagmill.
//
// Configuration is loaded from a YAML file with environment variable
// overrides and validated defaults.
package config

import (
	"fmt"
	"time"

	"github.com/tagmill/tagmill/internal/logging"
	"github.com/tagmill/tagmill/internal/telemetry"
)

// Config holds the complete tagmill configuration.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Logging   logging.Config   `koanf:"logging"`
	Telemetry telemetry.Config `koanf:"telemetry"`
	Rules     RulesConfig      `koanf:"rules"`
	People    PeopleConfig     `koanf:"people"`
	Catalog   CatalogConfig    `koanf:"catalog"`
	Tagging   TaggingConfig    `koanf:"tagging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// RulesConfig holds the local rule document settings.
type RulesConfig struct {
	Path     string        `koanf:"path"`
	Watch    bool          `koanf:"watch"`
	Debounce time.Duration `koanf:"debounce"`
}

// PeopleConfig holds the identity directory settings.
type PeopleConfig struct {
	Path string `koanf:"path"`
}

// CatalogConfig holds the remote tag-catalog sync settings.
type CatalogConfig struct {
	Enabled      bool          `koanf:"enabled"`
	BaseURL      string        `koanf:"base_url"`
	Token        Secret        `koanf:"token"`
	SnapshotPath string        `koanf:"snapshot_path"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MaxRetries   int           `koanf:"max_retries"`
}

// TaggingConfig holds facade and tagger settings.
type TaggingConfig struct {
	Mode          string        `koanf:"mode"`
	MinScore      float64       `koanf:"min_score"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`
	CacheEntries  int           `koanf:"cache_entries"`
	FinanceAreas  []string      `koanf:"finance_areas"`
	DisableScored bool          `koanf:"disable_scored"`
}

// NewDefaultConfig returns the full default configuration.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            9180,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging:   *logging.NewDefaultConfig(),
		Telemetry: *telemetry.NewDefaultConfig(),
		Rules: RulesConfig{
			Path:     "rules.yaml",
			Watch:    true,
			Debounce: 250 * time.Millisecond,
		},
		Catalog: CatalogConfig{
			Enabled:    false,
			Interval:   15 * time.Minute,
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Tagging: TaggingConfig{
			Mode:         "both",
			MinScore:     0.5,
			CacheTTL:     10 * time.Minute,
			CacheEntries: 512,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	if c.Rules.Path == "" {
		return fmt.Errorf("rules.path is required")
	}
	if c.Rules.Watch && c.Rules.Debounce <= 0 {
		return fmt.Errorf("rules.debounce must be positive when watching")
	}

	if c.Catalog.Enabled {
		if c.Catalog.BaseURL == "" {
			return fmt.Errorf("catalog.base_url is required when catalog sync is enabled")
		}
		if c.Catalog.Interval <= 0 {
			return fmt.Errorf("catalog.interval must be positive")
		}
	}

	switch c.Tagging.Mode {
	case "v0", "v1", "both":
	default:
		return fmt.Errorf("tagging.mode must be v0, v1, or both, got %q", c.Tagging.Mode)
	}
	if c.Tagging.MinScore < 0 {
		return fmt.Errorf("tagging.min_score cannot be negative")
	}
	if c.Tagging.CacheTTL <= 0 {
		return fmt.Errorf("tagging.cache_ttl must be positive")
	}
	if c.Tagging.CacheEntries <= 0 {
		return fmt.Errorf("tagging.cache_entries must be positive")
	}

	return nil
}
