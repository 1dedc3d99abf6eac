// Package memory provides in-process implementations of the query cache and
// signal bus for single-instance deployments.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alanyoungcy/marketdash/internal/domain"
)

// pruneThreshold is the entry count above which Set sweeps expired keys.
const pruneThreshold = 64

// DefaultFetchTimeout bounds a shared fetch once it no longer follows the
// context of the caller that started it.
const DefaultFetchTimeout = time.Minute

type entry struct {
	markets   []domain.Market
	expiresAt time.Time
}

// QueryCache is a TTL map of market listings. Concurrent misses on one key
// share a single fetch.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
	now     func() time.Time

	fetchTimeout time.Duration
}

// compile-time interface check
var _ domain.QueryCache = (*QueryCache)(nil)

// NewQueryCache creates an empty QueryCache.
func NewQueryCache() *QueryCache {
	return &QueryCache{
		entries:      make(map[string]entry),
		now:          time.Now,
		fetchTimeout: DefaultFetchTimeout,
	}
}

// WithFetchTimeout sets the bound on a shared fetch. Non-positive values keep
// the current bound.
func (c *QueryCache) WithFetchTimeout(d time.Duration) *QueryCache {
	if d > 0 {
		c.fetchTimeout = d
	}
	return c
}

// Get returns a copy of the cached listing, or domain.ErrNotFound when the key
// is absent or expired.
func (c *QueryCache) Get(_ context.Context, key string) ([]domain.Market, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || !c.now().Before(e.expiresAt) {
		return nil, fmt.Errorf("memory: get %s: %w", key, domain.ErrNotFound)
	}
	return slices.Clone(e.markets), nil
}

// Set stores a copy of markets under key for ttl.
func (c *QueryCache) Set(_ context.Context, key string, markets []domain.Market, ttl time.Duration) error {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= pruneThreshold {
		c.pruneLocked(now)
	}
	c.entries[key] = entry{
		markets:   slices.Clone(markets),
		expiresAt: now.Add(ttl),
	}
	return nil
}

// GetOrFetch returns the cached listing for key, calling fetch on a miss. A
// fetch error is returned as-is and nothing is cached.
//
// The shared fetch is detached from the caller that started it, so one
// caller giving up does not cancel the fetch for everyone else waiting on
// the same key. Each caller still returns as soon as its own ctx ends.
func (c *QueryCache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch domain.FetchFunc) ([]domain.Market, error) {
	if markets, err := c.Get(ctx, key); err == nil {
		return markets, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		// Another caller may have filled the key while we waited.
		if markets, err := c.Get(fctx, key); err == nil {
			return markets, nil
		}
		markets, err := fetch(fctx)
		if err != nil {
			return markets, err
		}
		_ = c.Set(fctx, key, markets, ttl)
		return markets, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("memory: get or fetch %s: %w", key, ctx.Err())
	case res := <-ch:
		markets, _ := res.Val.([]domain.Market)
		return slices.Clone(markets), res.Err
	}
}

// Invalidate drops key.
func (c *QueryCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *QueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *QueryCache) pruneLocked(now time.Time) int {
	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}
