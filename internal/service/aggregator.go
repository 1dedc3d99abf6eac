package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/marketdash/internal/domain"
)

// Aggregator merges the listings of several market sources into one
// volume-ranked list.
type Aggregator struct {
	sources []domain.MarketSource
	logger  *slog.Logger
}

// NewAggregator creates an Aggregator over sources. The argument order is the
// tie-break order: markets with equal volume keep the order of the sources
// they came from.
func NewAggregator(logger *slog.Logger, sources ...domain.MarketSource) *Aggregator {
	return &Aggregator{
		sources: sources,
		logger:  logger.With(slog.String("component", "aggregator")),
	}
}

// Sources returns the platforms the aggregator reads from, in tie-break order.
func (a *Aggregator) Sources() []domain.Source {
	out := make([]domain.Source, 0, len(a.sources))
	for _, s := range a.sources {
		out = append(out, s.Source())
	}
	return out
}

// FetchAll requests up to limit markets from every source concurrently, waits
// for all of them, and returns the union sorted by volume descending. A
// failing source contributes nothing. The result may hold up to
// limit*len(sources) markets.
func (a *Aggregator) FetchAll(ctx context.Context, limit int) []domain.Market {
	if limit <= 0 {
		return []domain.Market{}
	}

	// Each source writes only its own slot.
	results := make([][]domain.Market, len(a.sources))

	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			results[i] = src.FetchMarkets(ctx, limit)
			return nil
		})
	}
	_ = g.Wait() // sources are fail-soft

	total := 0
	for _, r := range results {
		total += len(r)
	}
	merged := make([]domain.Market, 0, total)
	for i, r := range results {
		a.logger.DebugContext(ctx, "source fetched",
			slog.String("source", string(a.sources[i].Source())),
			slog.Int("count", len(r)),
		)
		merged = append(merged, r...)
	}

	SortByVolume(merged)
	return merged
}

// FetchTrending returns the limit highest-volume markets. It over-fetches
// 2*limit from each source so the merged ranking is not biased toward
// whichever source fills the quota first.
func (a *Aggregator) FetchTrending(ctx context.Context, limit int) []domain.Market {
	if limit <= 0 {
		return []domain.Market{}
	}
	all := a.FetchAll(ctx, 2*limit)
	if len(all) > limit {
		all = all[:limit:limit]
	}
	return all
}

// SortByVolume orders markets by volume descending in place. The sort is
// stable so equal volumes keep their relative order.
func SortByVolume(markets []domain.Market) {
	slices.SortStableFunc(markets, func(x, y domain.Market) int {
		return cmp.Compare(y.Volume, x.Volume)
	})
}
