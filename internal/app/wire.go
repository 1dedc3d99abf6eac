package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/marketdash/internal/cache/memory"
	"github.com/alanyoungcy/marketdash/internal/cache/redis"
	"github.com/alanyoungcy/marketdash/internal/config"
	"github.com/alanyoungcy/marketdash/internal/domain"
	"github.com/alanyoungcy/marketdash/internal/notify"
	"github.com/alanyoungcy/marketdash/internal/pipeline"
	"github.com/alanyoungcy/marketdash/internal/platform/manifold"
	"github.com/alanyoungcy/marketdash/internal/platform/polymarket"
	"github.com/alanyoungcy/marketdash/internal/service"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Sources, in merge order.
	Sources    []domain.MarketSource
	Aggregator *service.Aggregator

	// Caches
	QueryCache   domain.QueryCache
	SignalBus    domain.SignalBus
	CacheBackend string

	Markets *service.MarketService
	Health  *pipeline.SourceHealth

	// Notifications
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

	// --- Venues ---
	gamma := polymarket.NewGammaClient(cfg.Polymarket.GammaHost, logger,
		polymarket.WithEventURLBase(cfg.Polymarket.EventURLBase),
		polymarket.WithTimeout(cfg.Polymarket.Timeout.Duration),
	)
	mf := manifold.NewClient(cfg.Manifold.BaseURL, logger,
		manifold.WithSort(cfg.Manifold.Sort),
		manifold.WithTimeout(cfg.Manifold.Timeout.Duration),
	)
	deps.Sources = []domain.MarketSource{gamma, mf}
	deps.Aggregator = service.NewAggregator(logger, deps.Sources...)

	// --- Query cache and signal bus: Redis when enabled, in-process otherwise ---
	// Sources are fetched in parallel, so a shared fetch needs the slower
	// venue's timeout.
	sourceTimeout := max(cfg.Polymarket.Timeout.Duration, cfg.Manifold.Timeout.Duration)
	if cfg.Redis.Enabled {
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

		locks := redis.NewLockManager(redisClient)
		deps.QueryCache = redis.NewQueryCache(redisClient, locks, cfg.Redis.LockTTL.Duration, logger).
			WithFetchTimeout(sourceTimeout + cfg.Redis.LockTTL.Duration)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.CacheBackend = "redis"
	} else {
		deps.QueryCache = memory.NewQueryCache().WithFetchTimeout(sourceTimeout)
		deps.SignalBus = memory.NewSignalBus(logger)
		deps.CacheBackend = "memory"
	}

	deps.Markets = service.NewMarketService(deps.Aggregator, deps.QueryCache, cfg.Dashboard.CacheTTL.Duration, logger)

	// --- Notifications ---
	deps.Notifier = notify.FromSettings(notify.Settings{
		TelegramToken:     cfg.Notify.TelegramToken,
		TelegramChatID:    cfg.Notify.TelegramChatID,
		DiscordWebhookURL: cfg.Notify.DiscordWebhookURL,
		Events:            cfg.Notify.Events,
	}, logger)

	// Without senders, health transitions are only logged.
	var alerts pipeline.Notifier
	if deps.Notifier.Enabled() {
		alerts = deps.Notifier
	}
	deps.Health = pipeline.NewSourceHealth(deps.Aggregator.Sources(), cfg.Notify.EmptyCyclesThreshold, alerts, logger)

	return deps, cleanup, nil
}
