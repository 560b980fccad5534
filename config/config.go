package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	JWTToken        string
	BaseURL         string
	Mock            bool
	RateTTL         time.Duration
	RequestTimeout  time.Duration
	MaxConcurrency  int
	WalletPath      string
	LogLevel        string
	LogPretty       bool
	StatusOverrides string
	DeviceEthKey    string
	DeviceSolKey    string
	MetricsAddr     string

	v *viper.Viper
}

// Load reads configuration from environment variables and an optional config file.
// An explicit configFile must exist; the default .swap-aggregator.yaml may not.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".swap-aggregator")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
	}

	// Set default values
	v.SetDefault("oneclick_base_url", "https://1click.chaindefuser.com")
	v.SetDefault("mock", false)
	v.SetDefault("rate_ttl", "1m")
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("max_concurrency", 8)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", true)
	v.SetDefault("disabled_providers", "")

	// Read from environment variables
	v.SetEnvPrefix("SWAP")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		JWTToken:        v.GetString("oneclick_jwt_token"),
		BaseURL:         v.GetString("oneclick_base_url"),
		Mock:            v.GetBool("mock"),
		RateTTL:         v.GetDuration("rate_ttl"),
		RequestTimeout:  v.GetDuration("request_timeout"),
		MaxConcurrency:  v.GetInt("max_concurrency"),
		WalletPath:      v.GetString("wallet_path"),
		LogLevel:        v.GetString("log_level"),
		LogPretty:       v.GetBool("log_pretty"),
		StatusOverrides: v.GetString("status_overrides"),
		DeviceEthKey:    v.GetString("device_eth_key"),
		DeviceSolKey:    v.GetString("device_sol_key"),
		MetricsAddr:     v.GetString("metrics_addr"),
		v:               v,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the values Load cannot default
func (c *Config) Validate() error {
	if !c.Mock && c.JWTToken == "" {
		return fmt.Errorf("JWT token not found. Please set SWAP_ONECLICK_JWT_TOKEN environment variable, create a .swap-aggregator.yaml config file or run with SWAP_MOCK=true")
	}
	if c.RateTTL <= 0 {
		return fmt.Errorf("rate_ttl must be positive, got %s", c.RateTTL)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("max_concurrency must be positive, got %d", c.MaxConcurrency)
	}
	return nil
}

// DisabledProviders returns the raw comma separated list of disabled providers.
// It is read again on every call so environment changes apply without a restart.
func (c *Config) DisabledProviders() string {
	if c.v == nil {
		return ""
	}
	return c.v.GetString("disabled_providers")
}
