package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/marketdash/internal/cache/memory"
	"github.com/alanyoungcy/marketdash/internal/domain"
)

// brokenCache fails every operation, as an unreachable Redis would.
type brokenCache struct{}

var errCacheDown = errors.New("cache down")

func (brokenCache) Get(context.Context, string) ([]domain.Market, error) {
	return nil, errCacheDown
}
func (brokenCache) Set(context.Context, string, []domain.Market, time.Duration) error {
	return errCacheDown
}
func (brokenCache) GetOrFetch(context.Context, string, time.Duration, domain.FetchFunc) ([]domain.Market, error) {
	return nil, errCacheDown
}
func (brokenCache) Invalidate(context.Context, string) error { return errCacheDown }

func newTestService(src ...domain.MarketSource) (*MarketService, *memory.QueryCache) {
	cache := memory.NewQueryCache()
	return NewMarketService(NewAggregator(testLogger(), src...), cache, time.Minute, testLogger()), cache
}

func TestMarketServiceListMarketsCaches(t *testing.T) {
	poly := &fakeSource{source: domain.SourcePolymarket, markets: []domain.Market{
		mkt("poly-1", domain.SourcePolymarket, 5),
	}}
	svc, cache := newTestService(poly)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := svc.ListMarkets(ctx, 30)
		if err != nil {
			t.Fatalf("ListMarkets failed: %v", err)
		}
		equalIDs(t, got, "poly-1")
	}
	if n := len(poly.calls()); n != 1 {
		t.Errorf("expected 1 upstream fetch, got %d", n)
	}
	if _, err := cache.Get(ctx, MarketsKey(30)); err != nil {
		t.Errorf("expected listing cached under %s: %v", MarketsKey(30), err)
	}

	// A different limit is a different query.
	svc.ListMarkets(ctx, 10)
	if n := len(poly.calls()); n != 2 {
		t.Errorf("expected a second fetch for a new limit, got %d", n)
	}
}

func TestMarketServiceListTrending(t *testing.T) {
	mani := &fakeSource{source: domain.SourceManifold, markets: []domain.Market{
		mkt("manifold-1", domain.SourceManifold, 3),
		mkt("manifold-2", domain.SourceManifold, 9),
		mkt("manifold-3", domain.SourceManifold, 6),
	}}
	svc, cache := newTestService(mani)

	got, err := svc.ListTrending(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListTrending failed: %v", err)
	}
	equalIDs(t, got, "manifold-2", "manifold-3")
	if _, err := cache.Get(context.Background(), TrendingKey(2)); err != nil {
		t.Errorf("expected trending cached: %v", err)
	}
}

func TestMarketServiceEmptyResultNotCached(t *testing.T) {
	poly := &fakeSource{source: domain.SourcePolymarket}
	svc, cache := newTestService(poly)
	ctx := context.Background()

	got, err := svc.ListMarkets(ctx, 30)
	if err != nil {
		t.Fatalf("ListMarkets failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil listing, got %v", got)
	}
	if _, err := cache.Get(ctx, MarketsKey(30)); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("empty listing should not be cached, got %v", err)
	}

	svc.ListMarkets(ctx, 30)
	if n := len(poly.calls()); n != 2 {
		t.Errorf("expected a retry after an empty result, got %d fetches", n)
	}
}

func TestMarketServiceCacheFailureFallsBack(t *testing.T) {
	poly := &fakeSource{source: domain.SourcePolymarket, markets: []domain.Market{
		mkt("poly-1", domain.SourcePolymarket, 5),
	}}
	svc := NewMarketService(NewAggregator(testLogger(), poly), brokenCache{}, time.Minute, testLogger())

	got, err := svc.ListMarkets(context.Background(), 30)
	if err != nil {
		t.Fatalf("expected fallback to sources, got %v", err)
	}
	equalIDs(t, got, "poly-1")

	// Refresh tolerates the cache failure too.
	if got := svc.RefreshTrending(context.Background(), 1); len(got) != 1 {
		t.Errorf("expected refresh to return the fetched listing, got %v", ids(got))
	}
}

func TestMarketServiceGetMarket(t *testing.T) {
	poly := &fakeSource{source: domain.SourcePolymarket, markets: []domain.Market{
		mkt("poly-1", domain.SourcePolymarket, 5),
		mkt("poly-2", domain.SourcePolymarket, 7),
	}}
	svc, _ := newTestService(poly)
	ctx := context.Background()

	m, err := svc.GetMarket(ctx, "poly-1", 30)
	if err != nil {
		t.Fatalf("GetMarket failed: %v", err)
	}
	if m.ID != "poly-1" {
		t.Errorf("unexpected market %+v", m)
	}

	if _, err := svc.GetMarket(ctx, "manifold-9", 30); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMarketServiceRefreshReplacesCache(t *testing.T) {
	poly := &fakeSource{source: domain.SourcePolymarket, markets: []domain.Market{
		mkt("poly-1", domain.SourcePolymarket, 5),
	}}
	svc, cache := newTestService(poly)
	ctx := context.Background()

	svc.ListMarkets(ctx, 30)
	poly.markets = []domain.Market{mkt("poly-2", domain.SourcePolymarket, 8)}

	fresh := svc.RefreshMarkets(ctx, 30)
	equalIDs(t, fresh, "poly-2")

	cached, err := cache.Get(ctx, MarketsKey(30))
	if err != nil {
		t.Fatalf("expected cached listing: %v", err)
	}
	equalIDs(t, cached, "poly-2")
}

func TestMarketServiceWaiterSurvivesCallerCancel(t *testing.T) {
	poly := &fakeSource{
		source:  domain.SourcePolymarket,
		markets: []domain.Market{mkt("poly-1", domain.SourcePolymarket, 5)},
		delay:   200 * time.Millisecond,
	}
	svc, _ := newTestService(poly)

	gone, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	var goneErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, goneErr = svc.ListMarkets(gone, 30)
	}()

	time.Sleep(10 * time.Millisecond)
	got, err := svc.ListMarkets(context.Background(), 30)
	<-done

	if err != nil {
		t.Fatalf("ListMarkets failed: %v", err)
	}
	equalIDs(t, got, "poly-1")
	if goneErr == nil {
		t.Error("expected the cancelled caller to get its context error")
	}
	if n := len(poly.calls()); n != 1 {
		t.Errorf("expected 1 upstream fetch, got %d", n)
	}
}
