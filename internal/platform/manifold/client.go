// Package manifold is a read-only client for the Manifold Markets REST API.
package manifold

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

// DefaultSort lists markets by trading activity over the last day.
const DefaultSort = "24-hour-volume"

// Client talks to the Manifold Markets v0 API.
type Client struct {
	baseURL    string
	sort       string
	httpClient *http.Client
	logger     *slog.Logger
}

// compile-time interface check
var _ domain.MarketSource = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithSort sets the default listing order used by FetchMarkets.
func WithSort(sort string) Option {
	return func(c *Client) {
		if sort != "" {
			c.sort = sort
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient = rest.NewHTTPClient(d) }
}

// NewClient creates a Manifold client.
//
// baseURL is the API root, e.g. "https://api.manifold.markets/v0".
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		sort:       DefaultSort,
		httpClient: rest.NewHTTPClient(30 * time.Second),
		logger:     logger.With(slog.String("component", "manifold")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source identifies the platform.
func (c *Client) Source() domain.Source {
	return domain.SourceManifold
}

// GetMarkets returns up to limit markets in the given sort order.
func (c *Client) GetMarkets(ctx context.Context, limit int, sort string) ([]domain.Market, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("sort", sort)

	body, err := rest.Get(ctx, c.httpClient, c.baseURL+"/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("manifold: get markets: %w", err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("manifold: decode markets: %w", err)
	}

	markets := make([]domain.Market, 0, len(apiMarkets))
	for i := range apiMarkets {
		markets = append(markets, apiMarkets[i].ToDomainMarket())
	}
	return markets, nil
}

// FetchMarkets returns up to limit markets in the client's default order.
// Failures are logged and reported as an empty slice.
func (c *Client) FetchMarkets(ctx context.Context, limit int) []domain.Market {
	return c.FetchMarketsSorted(ctx, limit, c.sort)
}

// FetchMarketsSorted is FetchMarkets with an explicit sort key.
func (c *Client) FetchMarketsSorted(ctx context.Context, limit int, sort string) []domain.Market {
	markets, err := c.GetMarkets(ctx, limit, sort)
	if err != nil {
		c.logger.WarnContext(ctx, "fetch markets failed",
			slog.Int("limit", limit),
			slog.String("sort", sort),
			slog.String("error", err.Error()),
		)
		return []domain.Market{}
	}
	return markets
}
