package ui

import (
	"fmt"
	"net/url"
	"time"

	"github.com/alanyoungcy/marketdash/internal/domain"
	"github.com/alanyoungcy/marketdash/internal/service"
)

// view is the dashboard's data model. It is only touched from the tview
// event goroutine.
type view struct {
	markets  []domain.Market
	trending []domain.Market
	filters  domain.MarketFilters
	loading  bool
	err      error
	updated  time.Time
}

// visible returns the markets that pass the current filters. Trending is
// never filtered.
func (v *view) visible() []domain.Market {
	return service.Filter(v.markets, v.filters)
}

func (v *view) statusText() string {
	switch {
	case v.loading && v.updated.IsZero():
		return "Loading markets..."
	case v.err != nil && v.updated.IsZero():
		return "[red]Error loading markets[-]. Please try again later (r)"
	}

	var text string
	switch n := len(v.visible()); {
	case len(v.markets) == 0:
		text = "No markets found"
	case n == 0:
		text = "No markets match the current filters"
	default:
		text = fmt.Sprintf("Showing %d markets", n)
	}
	if !v.updated.IsZero() {
		text += " | updated " + v.updated.Format("15:04:05")
	}
	if v.loading {
		text += " | refreshing..."
	} else if v.err != nil {
		text += " | [red]last refresh failed[-]"
	}
	return text
}

// filterInputs holds the raw text of the filter form.
type filterInputs struct {
	search   string
	category string
	minProb  string
	maxProb  string
}

// defaultFilterInputs is what the form starts with and what Reset restores:
// the whole probability range and no search or category.
var defaultFilterInputs = filterInputs{minProb: "0", maxProb: "100"}

// parse turns the form fields into filters using the same rules as the HTTP
// query parameters.
func (in filterInputs) parse() (domain.MarketFilters, error) {
	q := url.Values{}
	q.Set("q", in.search)
	q.Set("category", in.category)
	q.Set("min_probability", in.minProb)
	q.Set("max_probability", in.maxProb)
	return service.ParseFilters(q)
}
