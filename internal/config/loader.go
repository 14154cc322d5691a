package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CROSSARB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// TOML replaces map entries wholesale, so a [venues.X] section in the
	// file would zero the default rate limits for that venue. Backfill any
	// field the file left unset.
	defaults := Defaults()
	for name, vc := range cfg.Venues {
		if dv, ok := defaults.Venues[name]; ok {
			if vc.RateLimit == 0 {
				vc.RateLimit = dv.RateLimit
			}
			if vc.RateWindow.Duration == 0 {
				vc.RateWindow = dv.RateWindow
			}
		}
		if vc.RateWindow.Duration == 0 {
			vc.RateWindow = duration{time.Second}
		}
		cfg.Venues[name] = vc
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CROSSARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject API secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Venue credentials ──
	for name, vc := range cfg.Venues {
		prefix := "CROSSARB_VENUE_" + strings.ToUpper(name)
		setStr(&vc.APIKey, prefix+"_API_KEY")
		setStr(&vc.APISecret, prefix+"_API_SECRET")
		setInt(&vc.RateLimit, prefix+"_RATE_LIMIT")
		cfg.Venues[name] = vc
	}

	// ── Trading ──
	setStr(&cfg.Trading.VenueA, "CROSSARB_TRADING_VENUE_A")
	setStr(&cfg.Trading.VenueB, "CROSSARB_TRADING_VENUE_B")
	setStr(&cfg.Trading.Asset, "CROSSARB_TRADING_ASSET")
	setFloat64(&cfg.Trading.PerTradeCap, "CROSSARB_TRADING_PER_TRADE_CAP")
	setFloat64(&cfg.Trading.MinLotSize, "CROSSARB_TRADING_MIN_LOT_SIZE")
	setDuration(&cfg.Trading.CycleDelay, "CROSSARB_TRADING_CYCLE_DELAY")
	setDuration(&cfg.Trading.LegDelay, "CROSSARB_TRADING_LEG_DELAY")

	// ── Skew policy ──
	setFloat64(&cfg.Skew.BaseThreshold, "CROSSARB_SKEW_BASE_THRESHOLD")
	setFloat64(&cfg.Skew.SkewPremium, "CROSSARB_SKEW_PREMIUM")
	setFloat64(&cfg.Skew.SkewDiscount, "CROSSARB_SKEW_DISCOUNT")
	setFloat64(&cfg.Skew.HighWatermark, "CROSSARB_SKEW_HIGH_WATERMARK")

	// ── Risk ──
	setFloat64(&cfg.Risk.SolvencyFloor, "CROSSARB_RISK_SOLVENCY_FLOOR")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "CROSSARB_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "CROSSARB_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CROSSARB_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CROSSARB_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CROSSARB_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CROSSARB_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CROSSARB_POSTGRES_SSLMODE")
	setBool(&cfg.Postgres.RunMigrations, "CROSSARB_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "CROSSARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CROSSARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CROSSARB_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "CROSSARB_REDIS_TLS_ENABLED")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CROSSARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CROSSARB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CROSSARB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CROSSARB_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "CROSSARB_MODE")
	setStr(&cfg.LogLevel, "CROSSARB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
