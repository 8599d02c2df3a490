// Package config provides configuration management for the trading engine.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

const (
	// defaultTickInterval is used when trading.tick_interval is unset.
	defaultTickInterval = time.Minute
	// defaultMinNotional is used when trading.min_notional is unset.
	defaultMinNotional = 100.0
	// defaultInvestmentPct is used for bots without an investment_pct.
	defaultInvestmentPct = 0.10
)

// Config represents the complete application configuration.
type Config struct {
	Environment EnvironmentConfig `yaml:"environment"`
	Database    DatabaseConfig    `yaml:"database"`
	Provider    ProviderConfig    `yaml:"provider"`
	Trading     TradingConfig     `yaml:"trading"`
	API         APIConfig         `yaml:"api"`
}

// EnvironmentConfig defines the environment settings.
type EnvironmentConfig struct {
	Mode     string `yaml:"mode"`      // paper | live
	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// DatabaseConfig defines the SQLite database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ProviderConfig defines the market data provider settings.
type ProviderConfig struct {
	Kind        string `yaml:"kind"` // mock | http
	APIKey      string `yaml:"api_key"`
	APIEndpoint string `yaml:"api_endpoint"`
}

// TradingConfig defines engine-wide trading parameters.
type TradingConfig struct {
	TickInterval         string  `yaml:"tick_interval"`
	MinNotional          float64 `yaml:"min_notional"`
	DefaultInvestmentPct float64 `yaml:"default_investment_pct"`
	AvailableCash        float64 `yaml:"available_cash"`
}

// APIConfig defines the control API settings.
type APIConfig struct {
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// Load reads and parses the configuration file from the specified path.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- configPath is a user-provided config file path
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var config Config
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate checks that all configuration values are valid and consistent.
func (c *Config) Validate() error {
	if c.Environment.Mode != "paper" && c.Environment.Mode != "live" {
		return fmt.Errorf("environment.mode must be 'paper' or 'live'")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Provider.Kind {
	case "mock":
	case "http":
		if c.Provider.APIEndpoint == "" {
			return fmt.Errorf("provider.api_endpoint is required for the http provider")
		}
		if c.Provider.APIKey == "" {
			return fmt.Errorf("provider.api_key is required for the http provider")
		}
	default:
		return fmt.Errorf("provider.kind must be 'mock' or 'http'")
	}
	if c.Environment.Mode == "live" && c.Provider.Kind == "mock" {
		return fmt.Errorf("live mode cannot run on the mock provider")
	}

	if c.Trading.TickInterval != "" {
		if _, err := time.ParseDuration(c.Trading.TickInterval); err != nil {
			return fmt.Errorf("trading.tick_interval invalid: %w", err)
		}
	}
	if c.Trading.MinNotional < 0 {
		return fmt.Errorf("trading.min_notional must be >= 0")
	}
	if c.Trading.DefaultInvestmentPct < 0 || c.Trading.DefaultInvestmentPct > 1.0 {
		return fmt.Errorf("trading.default_investment_pct must be between 0 and 1.0")
	}
	if c.Trading.AvailableCash <= 0 {
		return fmt.Errorf("trading.available_cash must be > 0")
	}

	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be a valid port number")
	}

	return nil
}

// IsPaperTrading returns true when the engine runs in paper mode.
func (c *Config) IsPaperTrading() bool {
	return c.Environment.Mode == "paper"
}

// GetTickInterval returns the loop tick interval, defaulted when unset.
func (c *Config) GetTickInterval() time.Duration {
	if c.Trading.TickInterval == "" {
		return defaultTickInterval
	}
	d, err := time.ParseDuration(c.Trading.TickInterval)
	if err != nil {
		return defaultTickInterval
	}
	return d
}

// GetMinNotional returns the entry notional floor, defaulted when unset.
func (c *Config) GetMinNotional() float64 {
	if c.Trading.MinNotional == 0 {
		return defaultMinNotional
	}
	return c.Trading.MinNotional
}

// GetDefaultInvestmentPct returns the fallback bot allocation.
func (c *Config) GetDefaultInvestmentPct() float64 {
	if c.Trading.DefaultInvestmentPct == 0 {
		return defaultInvestmentPct
	}
	return c.Trading.DefaultInvestmentPct
}
