package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/marketdash/internal/domain"
	"github.com/alanyoungcy/marketdash/internal/service"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type MarketService interface {
	ListMarkets(ctx context.Context, limit int) ([]domain.Market, error)
	ListTrending(ctx context.Context, limit int) ([]domain.Market, error)
	GetMarket(ctx context.Context, id string, limit int) (domain.Market, error)
}

// Limits holds the default page sizes and the hard ceiling for ?limit=.
type Limits struct {
	Markets  int
	Trending int
	Max      int
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	limits  Limits
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, limits Limits, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		limits:  limits,
		logger:  logHandler(logger, "markets"),
	}
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Count   int             `json:"count"`
	Limit   int             `json:"limit"`
}

// ListMarkets returns the aggregated listing narrowed by the filter parameters.
// GET /api/markets?limit=30&q=&category=&min_probability=&max_probability=
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.limits.Markets, h.markets.ListMarkets)
}

// ListTrending returns the highest-volume markets narrowed by the filter
// parameters.
// GET /api/markets/trending?limit=6
func (h *MarketHandler) ListTrending(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.limits.Trending, h.markets.ListTrending)
}

func (h *MarketHandler) list(
	w http.ResponseWriter,
	r *http.Request,
	def int,
	fetch func(context.Context, int) ([]domain.Market, error),
) {
	filters, err := service.ParseFilters(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := parseLimit(r, def, h.limits.Max)

	markets, err := fetch(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.Int("limit", limit),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list markets")
		return
	}

	markets = service.Filter(markets, filters)
	if markets == nil {
		markets = []domain.Market{}
	}
	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Count:   len(markets),
		Limit:   limit,
	})
}

// GetMarket returns a single market from the current listing.
// GET /api/markets/{id}?limit=30
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}
	limit := parseLimit(r, h.limits.Markets, h.limits.Max)

	market, err := h.markets.GetMarket(r.Context(), id, limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get market failed",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get market")
		return
	}

	writeJSON(w, http.StatusOK, market)
}
