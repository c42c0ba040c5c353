package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/commerce-api/internal/policy"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "memory", cfg.DB.Driver)
	assert.Equal(t, "0.1", cfg.Pricing.TaxRate.String())
	assert.Equal(t, "10", cfg.Pricing.FlatShipping.String())
	assert.Equal(t, "USD", cfg.Pricing.Currency)
	assert.Equal(t, map[string]policy.Role{"apitest": policy.Owner}, cfg.Auth.Roles())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_DSN", "shop:secret@tcp(localhost:3306)/shop")
	t.Setenv("AUTH_API_KEYS", "k1:admin,k2:VIEWER")
	t.Setenv("PRICING_TAX_RATE", "0.2")
	t.Setenv("PRICING_FLAT_SHIPPING", "4.99")
	t.Setenv("SEED_FILE", "seed.yaml")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, map[string]policy.Role{"k1": policy.Admin, "k2": policy.Viewer}, cfg.Auth.Roles())
	assert.Equal(t, "0.2", cfg.Pricing.TaxRate.String())
	assert.Equal(t, "4.99", cfg.Pricing.FlatShipping.String())
	assert.Equal(t, "seed.yaml", cfg.SeedFile)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown driver", env: map[string]string{"DB_DRIVER": "sqlite"}},
		{name: "mysql without dsn", env: map[string]string{"DB_DRIVER": "mysql"}},
		{name: "unknown role", env: map[string]string{"AUTH_API_KEYS": "k1:ROOT"}},
		{name: "tax rate too high", env: map[string]string{"PRICING_TAX_RATE": "1.5"}},
		{name: "negative shipping", env: map[string]string{"PRICING_FLAT_SHIPPING": "-1"}},
		{name: "bad currency", env: map[string]string{"PRICING_CURRENCY": "DOLLAR"}},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "verbose"}},
		{name: "unparseable duration", env: map[string]string{"SERVER_READ_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
