// Package config defines the top-level configuration for the arbitrage bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by CROSSARB_* environment variables.
type Config struct {
	Venues   map[string]VenueConfig `toml:"venues"`
	Trading  TradingConfig          `toml:"trading"`
	Skew     SkewConfig             `toml:"skew"`
	Risk     RiskConfig             `toml:"risk"`
	Postgres PostgresConfig         `toml:"postgres"`
	Redis    RedisConfig            `toml:"redis"`
	Notify   NotifyConfig           `toml:"notify"`
	Mode     string                 `toml:"mode"`
	LogLevel string                 `toml:"log_level"`
}

// VenueConfig holds per-venue API credentials and call-rate limits.
type VenueConfig struct {
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
	// RateLimit is the maximum number of API calls per RateWindow.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// TradingConfig holds the parameters of the arbitrage pair being traded.
type TradingConfig struct {
	// VenueA and VenueB name the two venues to arbitrage between.
	VenueA string `toml:"venue_a"`
	VenueB string `toml:"venue_b"`
	Asset  string `toml:"asset"`
	// PerTradeCap is the maximum volume of a single trade, in base units.
	PerTradeCap float64 `toml:"per_trade_cap"`
	// MinLotSize is the smallest tradable volume across the venue pair.
	// Proposals below it are rejected, never rounded up.
	MinLotSize float64 `toml:"min_lot_size"`
	// CycleDelay is the fixed pause between polling cycles.
	CycleDelay duration `toml:"cycle_delay"`
	// LegDelay is the pause inserted before the sell leg when both legs
	// execute in the same cycle, for the stricter per-venue rate limits.
	LegDelay duration `toml:"leg_delay"`
}

// SkewConfig holds the inventory skew policy breakpoints. All thresholds are
// absolute JPY spreads.
type SkewConfig struct {
	// BaseThreshold is the spread a direction must clear with balanced
	// inventory.
	BaseThreshold float64 `toml:"base_threshold"`
	// SkewPremium is added to a direction's threshold when its buy venue
	// already holds at least HighWatermark of base currency.
	SkewPremium float64 `toml:"skew_premium"`
	// SkewDiscount is subtracted when the direction's sell venue holds at
	// least HighWatermark, encouraging the excess to be unwound.
	SkewDiscount float64 `toml:"skew_discount"`
	// HighWatermark is the base-currency holding above which a venue is
	// considered overstocked.
	HighWatermark float64 `toml:"high_watermark"`
}

// RiskConfig holds the solvency kill-switch parameters.
type RiskConfig struct {
	// SolvencyFloor is the total valuation in JPY below which the engine
	// halts permanently.
	SolvencyFloor float64 `toml:"solvency_floor"`
}

// PostgresConfig holds PostgreSQL connection parameters. Persistence is
// optional; with an empty host and DSN the bot runs without a database.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis backs the per-venue
// API rate limiter; with an empty addr the bot falls back to fixed delays.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// NotifyConfig holds notification channel settings.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
	// Events filters which event types are forwarded. Partial fills and
	// halts are always delivered regardless of this list.
	Events []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding ("2s", "500ms").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so TOML can parse
// duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration. Numeric trading defaults
// follow the parameters the system has been run with in production.
func Defaults() Config {
	return Config{
		Venues: map[string]VenueConfig{
			"gmo": {
				RateLimit:  6,
				RateWindow: duration{time.Second},
			},
			"coincheck": {
				RateLimit:  1,
				RateWindow: duration{time.Second},
			},
		},
		Trading: TradingConfig{
			VenueA:      "gmo",
			VenueB:      "coincheck",
			Asset:       "BTC",
			PerTradeCap: 0.01,
			MinLotSize:  0.005,
			CycleDelay:  duration{2 * time.Second},
			LegDelay:    duration{time.Second},
		},
		Skew: SkewConfig{
			BaseThreshold: 1000,
			SkewPremium:   300,
			SkewDiscount:  200,
			HighWatermark: 0.08,
		},
		Risk: RiskConfig{
			SolvencyFloor: 210000,
		},
		Postgres: PostgresConfig{
			Port:          5432,
			Database:      "crossarb",
			User:          "crossarb",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// Validate checks the configuration for internal consistency. It returns a
// single error listing every failed check.
func (c *Config) Validate() error {
	var errs []string

	switch c.Mode {
	case "trade", "monitor":
	default:
		errs = append(errs, fmt.Sprintf("mode must be \"trade\" or \"monitor\", got %q", c.Mode))
	}

	if c.Trading.VenueA == "" || c.Trading.VenueB == "" {
		errs = append(errs, "trading: venue_a and venue_b must be set")
	}
	if c.Trading.VenueA == c.Trading.VenueB {
		errs = append(errs, "trading: venue_a and venue_b must differ")
	}
	for _, name := range []string{c.Trading.VenueA, c.Trading.VenueB} {
		if name == "" {
			continue
		}
		vc, ok := c.Venues[name]
		if !ok {
			errs = append(errs, fmt.Sprintf("venues: missing section for %q", name))
			continue
		}
		if c.Mode == "trade" && (vc.APIKey == "" || vc.APISecret == "") {
			errs = append(errs, fmt.Sprintf("venues.%s: api_key and api_secret required in trade mode", name))
		}
		if vc.RateLimit < 1 {
			errs = append(errs, fmt.Sprintf("venues.%s: rate_limit must be >= 1", name))
		}
	}
	if c.Trading.Asset == "" {
		errs = append(errs, "trading: asset must not be empty")
	}
	if c.Trading.PerTradeCap <= 0 {
		errs = append(errs, "trading: per_trade_cap must be > 0")
	}
	if c.Trading.MinLotSize <= 0 {
		errs = append(errs, "trading: min_lot_size must be > 0")
	}
	if c.Trading.MinLotSize > c.Trading.PerTradeCap {
		errs = append(errs, "trading: min_lot_size must not exceed per_trade_cap")
	}
	if c.Trading.CycleDelay.Duration < time.Second {
		errs = append(errs, "trading: cycle_delay must be at least 1s")
	}
	if c.Trading.LegDelay.Duration < 0 {
		errs = append(errs, "trading: leg_delay must not be negative")
	}

	// A direction must never end up with a threshold <= 0, or the detector
	// would accept noise-level spreads.
	if c.Skew.BaseThreshold <= 0 {
		errs = append(errs, "skew: base_threshold must be > 0")
	}
	if c.Skew.SkewPremium < 0 {
		errs = append(errs, "skew: skew_premium must not be negative")
	}
	if c.Skew.SkewDiscount < 0 {
		errs = append(errs, "skew: skew_discount must not be negative")
	}
	if c.Skew.SkewDiscount >= c.Skew.BaseThreshold {
		errs = append(errs, "skew: skew_discount must be smaller than base_threshold")
	}
	if c.Skew.HighWatermark <= 0 {
		errs = append(errs, "skew: high_watermark must be > 0")
	}

	if c.Risk.SolvencyFloor <= 0 {
		errs = append(errs, "risk: solvency_floor must be > 0")
	}

	if c.PostgresEnabled() {
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// PostgresEnabled reports whether a database connection is configured.
func (c *Config) PostgresEnabled() bool {
	return strings.TrimSpace(c.Postgres.DSN) != "" || strings.TrimSpace(c.Postgres.Host) != ""
}

// RedisEnabled reports whether a Redis connection is configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}
