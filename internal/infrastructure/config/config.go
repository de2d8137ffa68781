// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultRulesFile is the default rules file name.
	DefaultRulesFile = "rules.yaml"
	// DefaultDataDir is the directory holding the session database.
	DefaultDataDir = "data"
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	HomeAssistant HomeAssistantConfig `yaml:"home_assistant,omitempty"`
	Engine        EngineConfig        `yaml:"engine,omitempty"`
	SQLite        SQLiteConfig        `yaml:"sqlite,omitempty"`
	Rules         RulesConfig         `yaml:"rules,omitempty"`
	Serve         ServeConfig         `yaml:"serve,omitempty"`
}

// HomeAssistantConfig holds the websocket API connection settings.
type HomeAssistantConfig struct {
	// URL is the websocket endpoint of the Home Assistant instance.
	URL string `yaml:"url,omitempty" env:"HOMEASSISTANT_URL"`
	// Token is the access token. Inside an addon the supervisor provides it.
	Token          string `yaml:"token,omitempty" env:"SUPERVISOR_TOKEN"`
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty" env:"HOMEASSISTANT_TIMEOUT_SECONDS"`
}

// EngineConfig holds the audit engine tuning knobs.
type EngineConfig struct {
	// ConfidenceThreshold gates actions below it behind approval.
	ConfidenceThreshold float64 `yaml:"confidence_threshold,omitempty" env:"HOUSEKEEPER_CONFIDENCE_THRESHOLD"`
	// FallbackAreaName, when set, gathers unplaced entities into one area.
	FallbackAreaName string `yaml:"fallback_area,omitempty" env:"HOUSEKEEPER_FALLBACK_AREA"`
	IncludeFallback  bool   `yaml:"include_fallback,omitempty" env:"HOUSEKEEPER_INCLUDE_FALLBACK"`
	// AlwaysApprove lists action types gated behind approval regardless of
	// confidence. Empty means the built-in default set.
	AlwaysApprove []string `yaml:"always_approve,omitempty" env:"HOUSEKEEPER_ALWAYS_APPROVE"`
}

// SQLiteConfig holds configuration for the SQLite session database.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database.
	Path string `yaml:"path,omitempty" env:"HOUSEKEEPER_DB_PATH"`
}

// RulesConfig holds the declared rules file location.
type RulesConfig struct {
	// Path is the YAML rules file. A missing file means no declared rules.
	Path string `yaml:"path,omitempty" env:"HOUSEKEEPER_RULES_PATH"`
}

// ServeConfig holds the HTTP API settings.
type ServeConfig struct {
	Addr string `yaml:"addr,omitempty" env:"HOUSEKEEPER_ADDR"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		HomeAssistant: HomeAssistantConfig{
			URL:            "ws://supervisor/core/websocket",
			TimeoutSeconds: 30,
		},
		Engine: EngineConfig{
			ConfidenceThreshold: 0.8,
		},
		SQLite: SQLiteConfig{
			Path: filepath.Join(DefaultDataDir, "housekeeper.db"),
		},
		Rules: RulesConfig{
			Path: DefaultRulesFile,
		},
		Serve: ServeConfig{
			Addr: ":8099",
		},
	}
}

// Load reads configuration from the given file, applying defaults first and
// environment variable overrides last. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults plus environment are enough to run.
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings an engine run depends on.
func (c *Config) Validate() error {
	if c.HomeAssistant.URL == "" {
		return fmt.Errorf("home_assistant.url is required")
	}
	if c.HomeAssistant.Token == "" {
		return fmt.Errorf("home_assistant.token is required (set SUPERVISOR_TOKEN)")
	}
	if c.Engine.ConfidenceThreshold < 0 || c.Engine.ConfidenceThreshold > 1 {
		return fmt.Errorf("engine.confidence_threshold must be within [0, 1]")
	}
	return nil
}
