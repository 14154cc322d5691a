package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, 0.01, cfg.Trading.PerTradeCap)
	assert.Equal(t, 0.005, cfg.Trading.MinLotSize)
	assert.Equal(t, 2*time.Second, cfg.Trading.CycleDelay.Duration)
	assert.Equal(t, 1000.0, cfg.Skew.BaseThreshold)
	assert.Equal(t, 210000.0, cfg.Risk.SolvencyFloor)
	assert.False(t, cfg.PostgresEnabled())
	assert.False(t, cfg.RedisEnabled())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown mode", func(c *Config) { c.Mode = "backtest" }, "mode must be"},
		{"same venue twice", func(c *Config) { c.Trading.VenueB = c.Trading.VenueA }, "must differ"},
		{"unconfigured venue", func(c *Config) { c.Trading.VenueB = "kraken" }, "missing section"},
		{"zero cap", func(c *Config) { c.Trading.PerTradeCap = 0 }, "per_trade_cap"},
		{"min lot above cap", func(c *Config) { c.Trading.MinLotSize = 0.02 }, "must not exceed per_trade_cap"},
		{"sub-second cycle", func(c *Config) { c.Trading.CycleDelay.Duration = 100 * time.Millisecond }, "cycle_delay"},
		{"zero base threshold", func(c *Config) { c.Skew.BaseThreshold = 0 }, "base_threshold"},
		{"discount swallows threshold", func(c *Config) { c.Skew.SkewDiscount = 1000 }, "smaller than base_threshold"},
		{"zero floor", func(c *Config) { c.Risk.SolvencyFloor = 0 }, "solvency_floor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateTradeModeRequiresCredentials(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key and api_secret required")

	for name, vc := range cfg.Venues {
		vc.APIKey = "key"
		vc.APISecret = "secret"
		cfg.Venues[name] = vc
	}
	assert.NoError(t, cfg.Validate())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
mode = "trade"
log_level = "debug"

[trading]
per_trade_cap = 0.02
cycle_delay = "5s"

[skew]
base_threshold = 1500.0

[venues.gmo]
api_key = "gk"
api_secret = "gs"

[venues.coincheck]
api_key = "ck"
api_secret = "cs"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "trade", cfg.Mode)
	assert.Equal(t, 0.02, cfg.Trading.PerTradeCap)
	assert.Equal(t, 5*time.Second, cfg.Trading.CycleDelay.Duration)
	assert.Equal(t, 1500.0, cfg.Skew.BaseThreshold)
	// Untouched fields keep their defaults.
	assert.Equal(t, 0.005, cfg.Trading.MinLotSize)
	assert.Equal(t, 210000.0, cfg.Risk.SolvencyFloor)
	// Merging the venue section keeps the default rate limits.
	assert.Equal(t, "gk", cfg.Venues["gmo"].APIKey)
	assert.Equal(t, 6, cfg.Venues["gmo"].RateLimit)

	require.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = \"monitor\"\n"), 0o600))

	t.Setenv("CROSSARB_VENUE_GMO_API_KEY", "env-key")
	t.Setenv("CROSSARB_VENUE_GMO_API_SECRET", "env-secret")
	t.Setenv("CROSSARB_TRADING_CYCLE_DELAY", "3s")
	t.Setenv("CROSSARB_RISK_SOLVENCY_FLOOR", "500000")
	t.Setenv("CROSSARB_NOTIFY_EVENTS", "opportunity, trade_completed")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Venues["gmo"].APIKey)
	assert.Equal(t, "env-secret", cfg.Venues["gmo"].APISecret)
	assert.Equal(t, 3*time.Second, cfg.Trading.CycleDelay.Duration)
	assert.Equal(t, 500000.0, cfg.Risk.SolvencyFloor)
	assert.Equal(t, []string{"opportunity", "trade_completed"}, cfg.Notify.Events)
}
