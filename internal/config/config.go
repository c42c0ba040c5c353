package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/shopforge/commerce-api/internal/policy"
)

// Config holds all configuration for the application
// Following 12-factor app principles, all config is loaded from environment variables
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Auth     AuthConfig
	Pricing  PricingConfig
	SeedFile string `envconfig:"SEED_FILE"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`
}

type DBConfig struct {
	Driver string `envconfig:"DRIVER" default:"memory"`
	DSN    string `envconfig:"DSN"`
}

type AuthConfig struct {
	// APIKeys maps an API key to the role it authenticates as.
	APIKeys map[string]string `envconfig:"API_KEYS" default:"apitest:OWNER"`
}

type PricingConfig struct {
	TaxRate      decimal.Decimal `envconfig:"TAX_RATE" default:"0.10"`
	FlatShipping decimal.Decimal `envconfig:"FLAT_SHIPPING" default:"10.00"`
	Currency     string          `envconfig:"CURRENCY" default:"USD"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	switch c.DB.Driver {
	case "memory":
	case "mysql":
		if c.DB.DSN == "" {
			return fmt.Errorf("DB_DSN is required for the mysql driver")
		}
	default:
		return fmt.Errorf("invalid DB_DRIVER: %s (must be memory or mysql)", c.DB.Driver)
	}

	if len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("at least one API key must be configured")
	}
	for key, role := range c.Auth.APIKeys {
		if _, ok := policy.ParseRole(role); !ok {
			return fmt.Errorf("API key %s has invalid role: %s", mask(key), role)
		}
	}

	if c.Pricing.TaxRate.IsNegative() || c.Pricing.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("PRICING_TAX_RATE must be in [0, 1): %s", c.Pricing.TaxRate)
	}
	if c.Pricing.FlatShipping.IsNegative() {
		return fmt.Errorf("PRICING_FLAT_SHIPPING cannot be negative: %s", c.Pricing.FlatShipping)
	}
	if len(c.Pricing.Currency) != 3 {
		return fmt.Errorf("PRICING_CURRENCY must be a 3-letter code: %s", c.Pricing.Currency)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// Roles returns the API key table with parsed roles.
func (a AuthConfig) Roles() map[string]policy.Role {
	out := make(map[string]policy.Role, len(a.APIKeys))
	for key, name := range a.APIKeys {
		if role, ok := policy.ParseRole(name); ok {
			out[key] = role
		}
	}
	return out
}

func mask(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-2:]
}
