package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/alanyoungcy/marketdash/internal/domain"
)

// MarketLister is the slice of the Aggregator the MarketService needs.
type MarketLister interface {
	FetchAll(ctx context.Context, limit int) []domain.Market
	FetchTrending(ctx context.Context, limit int) []domain.Market
}

// errEmptyResult keeps an all-sources-down result out of the cache so the
// next request retries the sources instead of serving nothing for a full TTL.
var errEmptyResult = errors.New("empty result")

// MarketsKey is the cache key of a FetchAll listing.
func MarketsKey(limit int) string { return "markets:" + strconv.Itoa(limit) }

// TrendingKey is the cache key of a FetchTrending listing.
func TrendingKey(limit int) string { return "trending-markets:" + strconv.Itoa(limit) }

// MarketService serves market listings through a QueryCache so concurrent
// and repeated requests for the same listing share one upstream fetch.
type MarketService struct {
	lister MarketLister
	cache  domain.QueryCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	lister MarketLister,
	cache domain.QueryCache,
	ttl time.Duration,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		lister: lister,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "market_service")),
	}
}

// ListMarkets returns the aggregated listing for limit.
func (s *MarketService) ListMarkets(ctx context.Context, limit int) ([]domain.Market, error) {
	return s.cached(ctx, MarketsKey(limit), func(ctx context.Context) []domain.Market {
		return s.lister.FetchAll(ctx, limit)
	})
}

// ListTrending returns the trending listing for limit.
func (s *MarketService) ListTrending(ctx context.Context, limit int) ([]domain.Market, error) {
	return s.cached(ctx, TrendingKey(limit), func(ctx context.Context) []domain.Market {
		return s.lister.FetchTrending(ctx, limit)
	})
}

// GetMarket finds a market by ID within the aggregated listing for limit.
func (s *MarketService) GetMarket(ctx context.Context, id string, limit int) (domain.Market, error) {
	markets, err := s.ListMarkets(ctx, limit)
	if err != nil {
		return domain.Market{}, err
	}
	for _, m := range markets {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.Market{}, fmt.Errorf("market_service: get market %q: %w", id, domain.ErrNotFound)
}

// RefreshMarkets fetches the listing for limit from the sources and replaces
// the cached copy.
func (s *MarketService) RefreshMarkets(ctx context.Context, limit int) []domain.Market {
	markets := s.lister.FetchAll(ctx, limit)
	s.store(ctx, MarketsKey(limit), markets)
	return markets
}

// RefreshTrending is RefreshMarkets for the trending listing.
func (s *MarketService) RefreshTrending(ctx context.Context, limit int) []domain.Market {
	markets := s.lister.FetchTrending(ctx, limit)
	s.store(ctx, TrendingKey(limit), markets)
	return markets
}

func (s *MarketService) cached(ctx context.Context, key string, fetch func(context.Context) []domain.Market) ([]domain.Market, error) {
	markets, err := s.cache.GetOrFetch(ctx, key, s.ttl, func(ctx context.Context) ([]domain.Market, error) {
		m := fetch(ctx)
		if len(m) == 0 {
			return m, errEmptyResult
		}
		return m, nil
	})
	switch {
	case err == nil:
		return markets, nil
	case errors.Is(err, errEmptyResult):
		return []domain.Market{}, nil
	case ctx.Err() != nil:
		return nil, fmt.Errorf("market_service: %s: %w", key, ctx.Err())
	}

	// The cache backend failed; serve straight from the sources.
	s.logger.WarnContext(ctx, "cache unavailable, fetching directly",
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
	return fetch(ctx), nil
}

func (s *MarketService) store(ctx context.Context, key string, markets []domain.Market) {
	if len(markets) == 0 {
		return
	}
	if err := s.cache.Set(ctx, key, markets, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "cache set failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
