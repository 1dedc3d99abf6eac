package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/marketdash/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource returns a fixed listing truncated to the requested limit and
// records every limit it was asked for.
type fakeSource struct {
	source  domain.Source
	markets []domain.Market
	delay   time.Duration

	mu     sync.Mutex
	limits []int
}

func (f *fakeSource) Source() domain.Source { return f.source }

func (f *fakeSource) FetchMarkets(ctx context.Context, limit int) []domain.Market {
	f.mu.Lock()
	f.limits = append(f.limits, limit)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return []domain.Market{}
		}
	}
	out := f.markets
	if len(out) > limit {
		out = out[:limit]
	}
	return append([]domain.Market(nil), out...)
}

func (f *fakeSource) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.limits...)
}

func mkt(id string, src domain.Source, volume float64) domain.Market {
	return domain.Market{ID: id, Question: id, Source: src, Volume: volume}
}

func ids(markets []domain.Market) []string {
	out := make([]string, len(markets))
	for i, m := range markets {
		out[i] = m.ID
	}
	return out
}

func equalIDs(t *testing.T, got []domain.Market, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("expected %v, got %v", want, g)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, g)
		}
	}
}

func TestFetchAllMergesAndSortsByVolume(t *testing.T) {
	poly := &fakeSource{source: domain.SourcePolymarket, markets: []domain.Market{
		mkt("poly-a", domain.SourcePolymarket, 10),
		mkt("poly-b", domain.SourcePolymarket, 300),
	}}
	mani := &fakeSource{source: domain.SourceManifold, markets: []domain.Market{
		mkt("manifold-c", domain.SourceManifold, 50),
		mkt("manifold-d", domain.SourceManifold, 5),
	}}

	agg := NewAggregator(testLogger(), poly, mani)
	got := agg.FetchAll(context.Background(), 10)

	equalIDs(t, got, "poly-b", "manifold-c", "poly-a", "manifold-d")
	if l := poly.calls(); len(l) != 1 || l[0] != 10 {
		t.Errorf("expected polymarket asked for 10, got %v", l)
	}
	if l := mani.calls(); len(l) != 1 || l[0] != 10 {
		t.Errorf("expected manifold asked for 10, got %v", l)
	}
}

func TestFetchAllTiesKeepSourceOrder(t *testing.T) {
	poly := &fakeSource{source: domain.SourcePolymarket, markets: []domain.Market{
		mkt("poly-1", domain.SourcePolymarket, 100),
		mkt("poly-2", domain.SourcePolymarket, 100),
	}}
	mani := &fakeSource{source: domain.SourceManifold, markets: []domain.Market{
		mkt("manifold-1", domain.SourceManifold, 100),
	}}

	got := NewAggregator(testLogger(), poly, mani).FetchAll(context.Background(), 5)
	equalIDs(t, got, "poly-1", "poly-2", "manifold-1")
}

func TestFetchAllOneSourceDown(t *testing.T) {
	poly := &fakeSource{source: domain.SourcePolymarket}
	mani := &fakeSource{source: domain.SourceManifold, markets: []domain.Market{
		mkt("manifold-x", domain.SourceManifold, 1),
		mkt("manifold-y", domain.SourceManifold, 2),
	}}

	got := NewAggregator(testLogger(), poly, mani).FetchAll(context.Background(), 5)
	equalIDs(t, got, "manifold-y", "manifold-x")
}

func TestFetchAllBothSourcesDown(t *testing.T) {
	agg := NewAggregator(testLogger(),
		&fakeSource{source: domain.SourcePolymarket},
		&fakeSource{source: domain.SourceManifold},
	)
	got := agg.FetchAll(context.Background(), 5)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %v", got)
	}
}

func TestFetchAllRunsSourcesConcurrently(t *testing.T) {
	poly := &fakeSource{source: domain.SourcePolymarket, delay: 200 * time.Millisecond,
		markets: []domain.Market{mkt("poly-a", domain.SourcePolymarket, 1)}}
	mani := &fakeSource{source: domain.SourceManifold, delay: 200 * time.Millisecond,
		markets: []domain.Market{mkt("manifold-a", domain.SourceManifold, 2)}}

	start := time.Now()
	got := NewAggregator(testLogger(), poly, mani).FetchAll(context.Background(), 5)
	elapsed := time.Since(start)

	if len(got) != 2 {
		t.Fatalf("expected 2 markets, got %d", len(got))
	}
	if elapsed >= 390*time.Millisecond {
		t.Errorf("sources appear to run sequentially: took %v", elapsed)
	}
}

func TestFetchAllNonPositiveLimit(t *testing.T) {
	poly := &fakeSource{source: domain.SourcePolymarket}
	agg := NewAggregator(testLogger(), poly)
	for _, limit := range []int{0, -3} {
		if got := agg.FetchAll(context.Background(), limit); len(got) != 0 {
			t.Errorf("limit %d: expected empty result, got %v", limit, got)
		}
	}
	if len(poly.calls()) != 0 {
		t.Errorf("sources should not be called, got %v", poly.calls())
	}
}

func TestFetchTrending(t *testing.T) {
	poly := &fakeSource{source: domain.SourcePolymarket, markets: []domain.Market{
		mkt("poly-1", domain.SourcePolymarket, 90),
		mkt("poly-2", domain.SourcePolymarket, 70),
		mkt("poly-3", domain.SourcePolymarket, 50),
		mkt("poly-4", domain.SourcePolymarket, 30),
	}}
	mani := &fakeSource{source: domain.SourceManifold, markets: []domain.Market{
		mkt("manifold-1", domain.SourceManifold, 80),
		mkt("manifold-2", domain.SourceManifold, 60),
		mkt("manifold-3", domain.SourceManifold, 40),
		mkt("manifold-4", domain.SourceManifold, 20),
	}}

	agg := NewAggregator(testLogger(), poly, mani)
	got := agg.FetchTrending(context.Background(), 2)

	equalIDs(t, got, "poly-1", "manifold-1")
	if l := poly.calls(); len(l) != 1 || l[0] != 4 {
		t.Errorf("expected trending to request 2*limit=4, got %v", l)
	}

	// Trending is a prefix of FetchAll(2*limit).
	all := agg.FetchAll(context.Background(), 4)
	trending := agg.FetchTrending(context.Background(), 3)
	for i := range trending {
		if trending[i].ID != all[i].ID {
			t.Fatalf("trending %v is not a prefix of %v", ids(trending), ids(all))
		}
	}
}

func TestFetchTrendingFewerThanLimit(t *testing.T) {
	mani := &fakeSource{source: domain.SourceManifold, markets: []domain.Market{
		mkt("manifold-1", domain.SourceManifold, 1),
	}}
	got := NewAggregator(testLogger(), mani).FetchTrending(context.Background(), 6)
	equalIDs(t, got, "manifold-1")
}

func TestAggregatorSources(t *testing.T) {
	agg := NewAggregator(testLogger(),
		&fakeSource{source: domain.SourcePolymarket},
		&fakeSource{source: domain.SourceManifold},
	)
	srcs := agg.Sources()
	if len(srcs) != 2 || srcs[0] != domain.SourcePolymarket || srcs[1] != domain.SourceManifold {
		t.Errorf("unexpected sources %v", srcs)
	}
}
