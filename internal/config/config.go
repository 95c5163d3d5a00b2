// Package config loads service configuration from an optional YAML file and
// PAYPAL_CHECKOUT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. PAYPAL_CHECKOUT_PAYPAL_API_KEY.
const EnvPrefix = "PAYPAL_CHECKOUT"

type Config struct {
	PayPal   PayPalConfig   `yaml:"paypal" mapstructure:"paypal"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Breaker  BreakerConfig  `yaml:"breaker" mapstructure:"breaker"`
}

// PayPalConfig holds processor credentials and gateway behaviour.
type PayPalConfig struct {
	APIKey          string        `yaml:"api_key" mapstructure:"api_key"`
	SecretKey       string        `yaml:"secret_key" mapstructure:"secret_key"`
	Server          string        `yaml:"server" mapstructure:"server"`
	AutoCapture     bool          `yaml:"auto_capture" mapstructure:"auto_capture"`
	HTTPTimeout     time.Duration `yaml:"http_timeout" mapstructure:"http_timeout"`
	ReauthorizeRule string        `yaml:"reauthorize_rule" mapstructure:"reauthorize_rule"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DatabaseConfig selects the checkout order store. An empty DSN keeps
// orders in memory.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

type BreakerConfig struct {
	FailureThreshold         int           `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeout             time.Duration `yaml:"reset_timeout" mapstructure:"reset_timeout"`
	HalfOpenSuccessThreshold int           `yaml:"half_open_success_threshold" mapstructure:"half_open_success_threshold"`
}

// Load reads path (optional) and applies environment overrides on top of
// the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return errors.New("config: server.addr is required")
	case c.PayPal.Server == "":
		return errors.New("config: paypal.server is required")
	case c.PayPal.HTTPTimeout <= 0:
		return errors.New("config: paypal.http_timeout must be positive")
	case strings.TrimSpace(c.PayPal.ReauthorizeRule) == "":
		return errors.New("config: paypal.reauthorize_rule is required")
	case c.Breaker.FailureThreshold < 0 || c.Breaker.HalfOpenSuccessThreshold < 0 || c.Breaker.ResetTimeout < 0:
		return errors.New("config: breaker settings cannot be negative")
	}
	return nil
}
