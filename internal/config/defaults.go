package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPayPalServer    = "api-m.sandbox.paypal.com"
	DefaultReauthorizeRule = "authorization_age_hours > 72"
)

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		PayPal: PayPalConfig{
			Server:          DefaultPayPalServer,
			HTTPTimeout:     30 * time.Second,
			ReauthorizeRule: DefaultReauthorizeRule,
		},
		Server: ServerConfig{Addr: ":8080"},
		Breaker: BreakerConfig{
			FailureThreshold:         5,
			ResetTimeout:             30 * time.Second,
			HalfOpenSuccessThreshold: 2,
		},
	}
}

// setDefaults registers every key so environment variables can override
// keys that appear in no file.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("paypal.api_key", d.PayPal.APIKey)
	v.SetDefault("paypal.secret_key", d.PayPal.SecretKey)
	v.SetDefault("paypal.server", d.PayPal.Server)
	v.SetDefault("paypal.auto_capture", d.PayPal.AutoCapture)
	v.SetDefault("paypal.http_timeout", d.PayPal.HTTPTimeout)
	v.SetDefault("paypal.reauthorize_rule", d.PayPal.ReauthorizeRule)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("breaker.failure_threshold", d.Breaker.FailureThreshold)
	v.SetDefault("breaker.reset_timeout", d.Breaker.ResetTimeout)
	v.SetDefault("breaker.half_open_success_threshold", d.Breaker.HalfOpenSuccessThreshold)
}
