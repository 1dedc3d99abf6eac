package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/alanyoungcy/marketdash/internal/domain"
)

// QueryCache implements domain.QueryCache with JSON payloads under
// "<prefix>query:<key>". Misses are collapsed in-process with singleflight
// and across instances with a LockManager: the instance holding the lock
// fetches while the others poll for its result.
type QueryCache struct {
	client       *Client
	locks        domain.LockManager
	lockTTL      time.Duration
	pollInterval time.Duration
	fetchTimeout time.Duration
	group        singleflight.Group
	logger       *slog.Logger
}

// Compile-time interface check.
var _ domain.QueryCache = (*QueryCache)(nil)

// NewQueryCache creates a QueryCache. lockTTL bounds both how long a fetch
// may hold the lock and how long other instances wait for it.
func NewQueryCache(c *Client, locks domain.LockManager, lockTTL time.Duration, logger *slog.Logger) *QueryCache {
	return &QueryCache{
		client:       c,
		locks:        locks,
		lockTTL:      lockTTL,
		pollInterval: 100 * time.Millisecond,
		fetchTimeout: time.Minute,
		logger:       logger.With(slog.String("component", "redis_query_cache")),
	}
}

// WithFetchTimeout sets the bound on a shared fetch, which does not follow
// the context of the caller that started it. Non-positive values keep the
// current bound.
func (qc *QueryCache) WithFetchTimeout(d time.Duration) *QueryCache {
	if d > 0 {
		qc.fetchTimeout = d
	}
	return qc
}

func lockName(key string) string {
	return "query:" + key
}

func (qc *QueryCache) key(key string) string {
	return qc.client.Key("query", key)
}

// Get returns the cached listing or domain.ErrNotFound.
func (qc *QueryCache) Get(ctx context.Context, key string) ([]domain.Market, error) {
	data, err := qc.client.Underlying().Get(ctx, qc.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("redis: get query %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("redis: get query %s: %w", key, err)
	}

	var markets []domain.Market
	if err := json.Unmarshal(data, &markets); err != nil {
		return nil, fmt.Errorf("redis: unmarshal query %s: %w", key, err)
	}
	return markets, nil
}

// Set stores markets under key for ttl.
func (qc *QueryCache) Set(ctx context.Context, key string, markets []domain.Market, ttl time.Duration) error {
	data, err := json.Marshal(markets)
	if err != nil {
		return fmt.Errorf("redis: marshal query %s: %w", key, err)
	}
	if err := qc.client.Underlying().Set(ctx, qc.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set query %s: %w", key, err)
	}
	return nil
}

// GetOrFetch returns the cached listing for key, fetching it on a miss. A
// fetch error is returned as-is and nothing is cached.
func (qc *QueryCache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch domain.FetchFunc) ([]domain.Market, error) {
	markets, err := qc.Get(ctx, key)
	if err == nil {
		return markets, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	ch := qc.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), qc.fetchTimeout)
		defer cancel()
		return qc.fetchLocked(fctx, key, ttl, fetch)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("redis: get or fetch %s: %w", key, ctx.Err())
	case res := <-ch:
		markets, _ = res.Val.([]domain.Market)
		return markets, res.Err
	}
}

func (qc *QueryCache) fetchLocked(ctx context.Context, key string, ttl time.Duration, fetch domain.FetchFunc) ([]domain.Market, error) {
	unlock, err := qc.locks.Acquire(ctx, lockName(key), qc.lockTTL)
	switch {
	case err == nil:
		defer unlock()
	case errors.Is(err, domain.ErrLockHeld):
		if markets, ok := qc.waitFor(ctx, key); ok {
			return markets, nil
		}
		// The holder did not finish in time; fetch without the lock.
	default:
		return nil, err
	}

	markets, err := fetch(ctx)
	if err != nil {
		return markets, err
	}
	if err := qc.Set(ctx, key, markets, ttl); err != nil {
		qc.logger.WarnContext(ctx, "cache set failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return markets, nil
}

// waitFor polls for key until it appears, the holder releases the lock
// without storing a value, the lock TTL elapses, or ctx ends.
func (qc *QueryCache) waitFor(ctx context.Context, key string) ([]domain.Market, bool) {
	deadline := time.NewTimer(qc.lockTTL)
	defer deadline.Stop()
	ticker := time.NewTicker(qc.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, false
		case <-deadline.C:
			return nil, false
		case <-ticker.C:
			if markets, err := qc.Get(ctx, key); err == nil {
				return markets, true
			}
			held, err := qc.client.Underlying().Exists(ctx, qc.client.Key("lock", lockName(key))).Result()
			if err == nil && held == 0 {
				return nil, false
			}
		}
	}
}

// Invalidate drops key.
func (qc *QueryCache) Invalidate(ctx context.Context, key string) error {
	if err := qc.client.Underlying().Del(ctx, qc.key(key)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate query %s: %w", key, err)
	}
	return nil
}
