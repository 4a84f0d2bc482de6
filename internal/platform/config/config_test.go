package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		DatabaseURL:         "postgres://localhost/paystream",
		JWTSecret:           "dev-secret",
		LedgerDeployer:      "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		LedgerDepositPolicy: "open",
		LedgerUnitDecimals:  6,
		MaxBodyBytes:        4096,
		RateLimitPerMinute:  60,
		DBMaxConns:          4,
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("APP_ADDR", ":9999")
	t.Setenv("LEDGER_TAX_BPS", "250")
	t.Setenv("YIELD_INTERVAL", "90s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("METRICS_ENABLED", "not-a-bool")

	cfg := Load()
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, 250, cfg.LedgerTaxBps)
	assert.Equal(t, 90*time.Second, cfg.YieldInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, 6, cfg.LedgerUnitDecimals)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := map[string]func(*Config){
		"missing database":  func(c *Config) { c.DatabaseURL = "" },
		"missing deployer":  func(c *Config) { c.LedgerDeployer = "" },
		"missing secret":    func(c *Config) { c.JWTSecret = " " },
		"short prod secret": func(c *Config) { c.Environment = "production" },
		"tax out of range":  func(c *Config) { c.LedgerTaxBps = 10001 },
		"tax without vault": func(c *Config) { c.LedgerTaxBps = 5 },
		"unknown policy":    func(c *Config) { c.LedgerDepositPolicy = "anyone" },
		"too many decimals": func(c *Config) { c.LedgerUnitDecimals = 19 },
		"tiny body limit":   func(c *Config) { c.MaxBodyBytes = 10 },
		"no rate limit":     func(c *Config) { c.RateLimitPerMinute = 0 },
		"no db connections": func(c *Config) { c.DBMaxConns = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
