package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/akifumi-dev/crossarb/internal/cache/redis"
	"github.com/akifumi-dev/crossarb/internal/config"
	"github.com/akifumi-dev/crossarb/internal/domain"
	"github.com/akifumi-dev/crossarb/internal/notify"
	"github.com/akifumi-dev/crossarb/internal/snapshot"
	"github.com/akifumi-dev/crossarb/internal/store/postgres"
	"github.com/akifumi-dev/crossarb/internal/venue"
	"github.com/akifumi-dev/crossarb/internal/venue/coincheck"
	"github.com/akifumi-dev/crossarb/internal/venue/gmo"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Clients []domain.VenueClient
	Cache   *snapshot.Cache

	// Stores are nil when no database is configured; the bot then keeps its
	// audit trail in the log only.
	TradeStore    domain.TradeStore
	DecisionStore domain.DecisionStore

	// RateLimiter is nil when Redis is not configured; venue clients then run
	// unthrottled and rely on the loop's fixed delays.
	RateLimiter domain.RateLimiter

	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL (optional) ---
	if cfg.PostgresEnabled() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.TradeStore = postgres.NewTradeStore(pool)
		deps.DecisionStore = postgres.NewDecisionStore(pool)
	}

	// --- Redis (optional) ---
	if cfg.RedisEnabled() {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	}

	// --- Venue clients ---
	for _, name := range []string{cfg.Trading.VenueA, cfg.Trading.VenueB} {
		vc, ok := cfg.Venues[name]
		if !ok {
			cleanup()
			return nil, nil, fmt.Errorf("wire: no venue config for %q", name)
		}
		client, err := buildVenueClient(name, vc)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		client = venue.Throttle(client, deps.RateLimiter, vc.RateLimit, vc.RateWindow.Duration)
		deps.Clients = append(deps.Clients, client)
	}

	deps.Cache = snapshot.NewCache(deps.Clients, logger)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}

func buildVenueClient(name string, vc config.VenueConfig) (domain.VenueClient, error) {
	switch domain.Venue(name) {
	case domain.VenueGMO:
		return gmo.NewClient(vc.APIKey, vc.APISecret), nil
	case domain.VenueCoincheck:
		return coincheck.NewClient(vc.APIKey, vc.APISecret), nil
	default:
		return nil, fmt.Errorf("wire: unknown venue %q", name)
	}
}
