package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/marketdash/internal/domain"
)

// Notification event types emitted by SourceHealth.
const (
	EventSourceEmpty     = "source_empty"
	EventSourceRecovered = "source_recovered"
)

// Notifier delivers operator alerts.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// SourceHealth tracks how many consecutive refresh cycles each source has
// contributed no markets. Adapters report failures as empty listings, so a
// run of empty cycles is the only outage signal available.
type SourceHealth struct {
	mu        sync.Mutex
	sources   []domain.Source
	threshold int
	streaks   map[domain.Source]int
	down      map[domain.Source]bool
	notifier  Notifier
	logger    *slog.Logger
}

// NewSourceHealth creates a tracker for sources that alerts after threshold
// consecutive empty cycles. notifier may be nil, in which case transitions
// are only logged.
func NewSourceHealth(sources []domain.Source, threshold int, notifier Notifier, logger *slog.Logger) *SourceHealth {
	if threshold < 1 {
		threshold = 1
	}
	return &SourceHealth{
		sources:   sources,
		threshold: threshold,
		streaks:   make(map[domain.Source]int, len(sources)),
		down:      make(map[domain.Source]bool, len(sources)),
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "source_health")),
	}
}

// Observe records one cycle's per-source market counts.
func (h *SourceHealth) Observe(ctx context.Context, counts map[domain.Source]int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, src := range h.sources {
		if counts[src] > 0 {
			if h.down[src] {
				h.down[src] = false
				h.alert(ctx, EventSourceRecovered, src,
					fmt.Sprintf("%s is returning markets again (%d this cycle)", src, counts[src]))
			}
			h.streaks[src] = 0
			continue
		}

		h.streaks[src]++
		if h.streaks[src] == h.threshold && !h.down[src] {
			h.down[src] = true
			h.alert(ctx, EventSourceEmpty, src,
				fmt.Sprintf("%s returned no markets for %d consecutive refreshes", src, h.threshold))
		}
	}
}

// Down reports whether src is currently considered unavailable.
func (h *SourceHealth) Down(src domain.Source) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.down[src]
}

func (h *SourceHealth) alert(ctx context.Context, event string, src domain.Source, message string) {
	h.logger.WarnContext(ctx, "source health changed",
		slog.String("event", event),
		slog.String("source", string(src)),
	)
	if h.notifier == nil {
		return
	}
	if err := h.notifier.Notify(ctx, event, "marketdash: "+event, message); err != nil {
		h.logger.ErrorContext(ctx, "notify failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
