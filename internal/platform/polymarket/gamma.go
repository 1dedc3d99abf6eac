package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/marketdash/internal/domain"
	"github.com/alanyoungcy/marketdash/internal/platform/rest"
)

// DefaultEventURLBase is the public site prefix for market links.
const DefaultEventURLBase = "https://polymarket.com/event"

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market discovery and metadata.
type GammaClient struct {
	baseURL      string
	eventURLBase string
	httpClient   *http.Client
	logger       *slog.Logger
}

// compile-time interface check
var _ domain.MarketSource = (*GammaClient)(nil)

// GammaOption configures a GammaClient.
type GammaOption func(*GammaClient)

// WithEventURLBase overrides the prefix used to build market links.
func WithEventURLBase(base string) GammaOption {
	return func(g *GammaClient) { g.eventURLBase = base }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) GammaOption {
	return func(g *GammaClient) { g.httpClient = rest.NewHTTPClient(d) }
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string, logger *slog.Logger, opts ...GammaOption) *GammaClient {
	g := &GammaClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		eventURLBase: DefaultEventURLBase,
		httpClient:   rest.NewHTTPClient(30 * time.Second),
		logger:       logger.With(slog.String("component", "polymarket_gamma")),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Source identifies the platform.
func (g *GammaClient) Source() domain.Source {
	return domain.SourcePolymarket
}

// GetMarkets returns up to limit active markets.
func (g *GammaClient) GetMarkets(ctx context.Context, limit int) ([]domain.Market, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("active", "true")

	body, err := rest.Get(ctx, g.httpClient, g.baseURL+"/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get markets: %w", err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}

	markets := make([]domain.Market, 0, len(apiMarkets))
	for i := range apiMarkets {
		markets = append(markets, apiMarkets[i].ToDomainMarket(g.eventURLBase))
	}

	return markets, nil
}

// FetchMarkets is the fail-soft form of GetMarkets: any failure is logged and
// reported as an empty slice.
func (g *GammaClient) FetchMarkets(ctx context.Context, limit int) []domain.Market {
	markets, err := g.GetMarkets(ctx, limit)
	if err != nil {
		g.logger.WarnContext(ctx, "fetch markets failed",
			slog.Int("limit", limit),
			slog.String("error", err.Error()),
		)
		return []domain.Market{}
	}
	return markets
}
