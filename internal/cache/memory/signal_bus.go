package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/marketdash/internal/domain"
)

// subscriberBuffer is the per-subscriber queue depth. Slow subscribers lose
// messages rather than blocking publishers.
const subscriberBuffer = 16

// SignalBus fans published payloads out to in-process subscribers.
type SignalBus struct {
	mu     sync.RWMutex
	subs   map[string]map[chan []byte]struct{}
	logger *slog.Logger
}

// compile-time interface check
var _ domain.SignalBus = (*SignalBus)(nil)

// NewSignalBus creates an empty SignalBus.
func NewSignalBus(logger *slog.Logger) *SignalBus {
	return &SignalBus{
		subs:   make(map[string]map[chan []byte]struct{}),
		logger: logger.With(slog.String("component", "memory_signal_bus")),
	}
}

// Publish delivers payload to every current subscriber of channel.
func (b *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
			b.logger.WarnContext(ctx, "subscriber full, dropping message",
				slog.String("channel", channel),
			)
		}
	}
	return nil
}

// Subscribe returns a channel that receives payloads published to channel
// until ctx is cancelled, after which it is closed.
func (b *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, subscriberBuffer)

	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[chan []byte]struct{})
	}
	b.subs[channel][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[channel], ch)
		if len(b.subs[channel]) == 0 {
			delete(b.subs, channel)
		}
		b.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}
