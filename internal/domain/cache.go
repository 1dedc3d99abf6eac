package domain

import (
	"context"
	"time"
)

// FetchFunc produces a fresh market listing for a QueryCache miss.
type FetchFunc func(ctx context.Context) ([]Market, error)

// QueryCache memoizes market listings by query key and collapses concurrent
// fetches of the same key into one.
type QueryCache interface {
	// Get returns ErrNotFound when the key is absent or expired.
	Get(ctx context.Context, key string) ([]Market, error)
	Set(ctx context.Context, key string, markets []Market, ttl time.Duration) error
	GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) ([]Market, error)
	Invalidate(ctx context.Context, key string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub fan-out of refresh snapshots.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
