package service

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/alanyoungcy/marketdash/internal/domain"
)

// Filter returns the markets that satisfy f, in their original order. The
// input is never modified and the result never aliases it.
//
// A non-empty SearchQuery decides on its own: a market matches when the query
// is a case-insensitive substring of its question or description, and the
// category and probability bounds are not consulted. Without a search query a
// market must satisfy every constraint that is set.
func Filter(markets []domain.Market, f domain.MarketFilters) []domain.Market {
	out := make([]domain.Market, 0, len(markets))
	query := strings.ToLower(f.SearchQuery)
	for _, m := range markets {
		if matches(m, f, query) {
			out = append(out, m)
		}
	}
	return out
}

func matches(m domain.Market, f domain.MarketFilters, query string) bool {
	if query != "" {
		return strings.Contains(strings.ToLower(m.Question), query) ||
			strings.Contains(strings.ToLower(m.Description), query)
	}
	if f.Category != "" && m.Category != f.Category {
		return false
	}
	if f.MinProbability != nil && m.Probability < *f.MinProbability {
		return false
	}
	if f.MaxProbability != nil && m.Probability > *f.MaxProbability {
		return false
	}
	return true
}

// ParseFilters reads filters from query parameters: category,
// min_probability, max_probability and q. Probability bounds must be numbers;
// blank parameters are treated as absent.
func ParseFilters(q url.Values) (domain.MarketFilters, error) {
	f := domain.MarketFilters{
		Category:    strings.TrimSpace(q.Get("category")),
		SearchQuery: strings.TrimSpace(q.Get("q")),
	}

	var err error
	if f.MinProbability, err = parseBound(q, "min_probability"); err != nil {
		return domain.MarketFilters{}, err
	}
	if f.MaxProbability, err = parseBound(q, "max_probability"); err != nil {
		return domain.MarketFilters{}, err
	}
	return f, nil
}

func parseBound(q url.Values, key string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return nil, fmt.Errorf("%w: %s must be a number, got %q", domain.ErrInvalidQuery, key, raw)
	}
	return &v, nil
}
