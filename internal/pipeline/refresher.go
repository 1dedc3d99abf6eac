package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/marketdash/internal/domain"
)

// ListingRefresher re-fetches listings from the sources and replaces the
// cached copies.
type ListingRefresher interface {
	RefreshMarkets(ctx context.Context, limit int) []domain.Market
	RefreshTrending(ctx context.Context, limit int) []domain.Market
}

// RefresherConfig sets the listing sizes refreshed each cycle.
type RefresherConfig struct {
	MarketsLimit  int
	TrendingLimit int
}

// Refresher keeps the dashboard listings warm: every cycle it refreshes the
// cached markets and trending listings, publishes them as snapshots on the
// signal bus, and feeds per-source counts to the health tracker.
type Refresher struct {
	listings ListingRefresher
	bus      domain.SignalBus
	health   *SourceHealth
	cfg      RefresherConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewRefresher creates a Refresher. health may be nil.
func NewRefresher(listings ListingRefresher, bus domain.SignalBus, health *SourceHealth, cfg RefresherConfig, logger *slog.Logger) *Refresher {
	return &Refresher{
		listings: listings,
		bus:      bus,
		health:   health,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "refresher")),
		now:      time.Now,
	}
}

// Run executes a single refresh cycle.
func (r *Refresher) Run(ctx context.Context) error {
	start := r.now()

	markets := r.listings.RefreshMarkets(ctx, r.cfg.MarketsLimit)
	counts := domain.CountBySource(markets)
	errMarkets := r.publish(ctx, domain.ChannelMarkets, "markets", r.cfg.MarketsLimit, markets, counts)

	trending := r.listings.RefreshTrending(ctx, r.cfg.TrendingLimit)
	errTrending := r.publish(ctx, domain.ChannelTrending, "trending", r.cfg.TrendingLimit, trending, domain.CountBySource(trending))

	if r.health != nil {
		r.health.Observe(ctx, counts)
	}

	r.logger.InfoContext(ctx, "refresh complete",
		slog.Int("markets", len(markets)),
		slog.Int("trending", len(trending)),
		slog.Duration("elapsed", r.now().Sub(start)),
	)

	return errors.Join(errMarkets, errTrending)
}

// RunLoop runs the refresher on a repeating interval until the context is
// cancelled. Cycles never overlap.
func (r *Refresher) RunLoop(ctx context.Context, interval time.Duration) error {
	// Run immediately on start.
	if err := r.Run(ctx); err != nil {
		r.logger.ErrorContext(ctx, "refresh failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.Run(ctx); err != nil {
				r.logger.ErrorContext(ctx, "refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (r *Refresher) publish(ctx context.Context, channel, kind string, limit int, markets []domain.Market, counts map[domain.Source]int) error {
	if r.bus == nil {
		return nil
	}
	payload, err := json.Marshal(domain.Snapshot{
		Kind:        kind,
		Limit:       limit,
		Markets:     markets,
		Counts:      counts,
		RefreshedAt: r.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("refresher: marshal %s snapshot: %w", kind, err)
	}
	if err := r.bus.Publish(ctx, channel, payload); err != nil {
		return fmt.Errorf("refresher: publish %s: %w", kind, err)
	}
	return nil
}
