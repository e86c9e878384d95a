// Package config handles application configuration: a YAML file at the XDG
// config path with environment variable overrides for the API endpoint and
// token.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed config.sample.yaml
var sampleConfig string

// GetSampleConfig returns the embedded sample configuration content.
func GetSampleConfig() string {
	return sampleConfig
}

// APIConfig holds remote backend connection settings. An empty BaseURL means
// the client runs in display-only mode: nothing is loaded, every mutation is
// rejected locally.
type APIConfig struct {
	BaseURL          string `yaml:"base_url"`
	Token            string `yaml:"token"`
	TokenFromKeyring bool   `yaml:"token_from_keyring"`
	Timeout          string `yaml:"timeout"` // e.g. "30s"
}

// MonitorConfig holds connection monitor settings.
type MonitorConfig struct {
	Interval string `yaml:"interval"` // probe cadence, e.g. "30s"
}

// BreakdownConfig tunes the bounded reload poll after an AI breakdown.
type BreakdownConfig struct {
	PollAttempts int    `yaml:"poll_attempts"`
	PollInterval string `yaml:"poll_interval"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	ShowCompleted bool `yaml:"show_completed"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// Config represents the application configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Breakdown BreakdownConfig `yaml:"breakdown"`
	UI        UIConfig        `yaml:"ui"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DefaultConfig returns a config with sensible defaults. The API base URL is
// deliberately empty: pointing at a backend is an explicit user decision.
func DefaultConfig() *Config {
	return &Config{
		API:       APIConfig{Timeout: "30s"},
		Monitor:   MonitorConfig{Interval: "30s"},
		Breakdown: BreakdownConfig{PollAttempts: 5, PollInterval: "1s"},
		UI:        UIConfig{ShowCompleted: true},
	}
}

// Load loads configuration from the specified path, or the default XDG path
// when empty. A missing config file is created with the sample content.
// Environment variables EISEN_API_URL and EISEN_API_TOKEN override the file.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = filepath.Join(GetConfigDir(), "config.yaml")
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := writeSample(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML in config file: %w", err)
		}
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.API.Timeout == "" {
		cfg.API.Timeout = "30s"
	}
	if cfg.Monitor.Interval == "" {
		cfg.Monitor.Interval = "30s"
	}
	if cfg.Breakdown.PollAttempts <= 0 {
		cfg.Breakdown.PollAttempts = 5
	}
	if cfg.Breakdown.PollInterval == "" {
		cfg.Breakdown.PollInterval = "1s"
	}
}

func applyEnvOverrides(cfg *Config) {
	if url := os.Getenv("EISEN_API_URL"); url != "" {
		cfg.API.BaseURL = url
	}
	if token := os.Getenv("EISEN_API_TOKEN"); token != "" {
		cfg.API.Token = token
		cfg.API.TokenFromKeyring = false
	}
}

func writeSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, []byte(sampleConfig), 0644)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := c.APITimeout(); err != nil {
		return fmt.Errorf("invalid api.timeout: %w", err)
	}
	if _, err := c.MonitorInterval(); err != nil {
		return fmt.Errorf("invalid monitor.interval: %w", err)
	}
	if _, err := c.BreakdownPollInterval(); err != nil {
		return fmt.Errorf("invalid breakdown.poll_interval: %w", err)
	}
	return nil
}

// HasAPI reports whether a backend base URL is configured.
func (c *Config) HasAPI() bool {
	return c.API.BaseURL != ""
}

// APITimeout returns the per-request timeout.
func (c *Config) APITimeout() (time.Duration, error) {
	return time.ParseDuration(c.API.Timeout)
}

// MonitorInterval returns the connection probe cadence.
func (c *Config) MonitorInterval() (time.Duration, error) {
	return time.ParseDuration(c.Monitor.Interval)
}

// BreakdownPollInterval returns the delay between breakdown reload polls.
func (c *Config) BreakdownPollInterval() (time.Duration, error) {
	return time.ParseDuration(c.Breakdown.PollInterval)
}

// GetConfigDir returns the configuration directory following the XDG spec.
// There is no data directory counterpart; nothing in this client persists
// outside the config file.
func GetConfigDir() string {
	if xdgDir := os.Getenv("XDG_CONFIG_HOME"); xdgDir != "" {
		return filepath.Join(xdgDir, "eisen")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "eisen")
	}
	return filepath.Join(home, ".config", "eisen")
}
