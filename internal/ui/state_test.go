package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rivo/tview"

	"github.com/alanyoungcy/marketdash/internal/domain"
)

func sampleMarkets() []domain.Market {
	return []domain.Market{
		{ID: "poly-1", Question: "Rain tomorrow?", Probability: 80, Volume: 2000, Source: domain.SourcePolymarket},
		{ID: "manifold-2", Question: "BTC above 100k?", Probability: 30, Volume: 100, Source: domain.SourceManifold, Category: "Crypto"},
	}
}

func TestStatusText(t *testing.T) {
	updated := time.Date(2025, 1, 1, 12, 30, 0, 0, time.UTC)
	min50 := 50.0

	tests := []struct {
		name string
		v    view
		want []string
	}{
		{name: "first load", v: view{loading: true}, want: []string{"Loading markets..."}},
		{name: "first load failed", v: view{err: errors.New("x")}, want: []string{"Error loading markets"}},
		{name: "loaded", v: view{markets: sampleMarkets(), updated: updated}, want: []string{"Showing 2 markets", "updated 12:30:00"}},
		{name: "empty listing", v: view{updated: updated}, want: []string{"No markets found", "updated 12:30:00"}},
		{name: "empty listing while filtering", v: view{filters: domain.MarketFilters{SearchQuery: "btc"}, updated: updated}, want: []string{"No markets found"}},
		{
			name: "filtered out",
			v: view{
				markets: sampleMarkets()[1:],
				filters: domain.MarketFilters{MinProbability: &min50},
				updated: updated,
			},
			want: []string{"No markets match"},
		},
		{name: "background refresh", v: view{markets: sampleMarkets(), updated: updated, loading: true}, want: []string{"Showing 2 markets", "refreshing..."}},
		{name: "stale after failure", v: view{markets: sampleMarkets(), updated: updated, err: errors.New("x")}, want: []string{"Showing 2 markets", "last refresh failed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.v.statusText()
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("status %q missing %q", got, w)
				}
			}
		})
	}
}

func TestParseFilterInputs(t *testing.T) {
	f, err := filterInputs{search: " btc ", category: "Crypto", minProb: "10"}.parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.SearchQuery != "btc" || f.Category != "Crypto" {
		t.Errorf("unexpected filters %+v", f)
	}
	if f.MinProbability == nil || *f.MinProbability != 10 || f.MaxProbability != nil {
		t.Errorf("unexpected bounds %+v", f)
	}

	if _, err := (filterInputs{minProb: "-"}).parse(); err == nil {
		t.Error("expected error for partial number")
	}
}

func TestDefaultFilterInputsKeepEveryMarket(t *testing.T) {
	f, err := defaultFilterInputs.parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.SearchQuery != "" || f.Category != "" {
		t.Errorf("reset should clear search and category, got %+v", f)
	}
	if f.MinProbability == nil || *f.MinProbability != 0 || f.MaxProbability == nil || *f.MaxProbability != 100 {
		t.Errorf("reset should restore 0-100, got %+v", f)
	}

	v := view{markets: sampleMarkets(), filters: f}
	if got := len(v.visible()); got != len(v.markets) {
		t.Errorf("default filters hid markets: %d of %d visible", got, len(v.markets))
	}
}

func TestFillTable(t *testing.T) {
	table := tview.NewTable()
	markets := sampleMarkets()

	fillTable(table, markets, true)

	if got := table.GetRowCount(); got != len(markets)+1 {
		t.Fatalf("expected %d rows, got %d", len(markets)+1, got)
	}
	if got := table.GetColumnCount(); got != 5 {
		t.Errorf("expected 5 columns with category, got %d", got)
	}
	m, ok := table.GetCell(2, 0).GetReference().(domain.Market)
	if !ok || m.ID != "manifold-2" {
		t.Errorf("row 2 should reference manifold-2, got %+v", table.GetCell(2, 0).GetReference())
	}
	if table.GetCell(1, 2).Text != "80.0%" || table.GetCell(1, 3).Text != "$2.0K" {
		t.Errorf("unexpected cells %q %q", table.GetCell(1, 2).Text, table.GetCell(1, 3).Text)
	}

	fillTable(table, nil, false)
	if table.GetRowCount() != 1 || table.GetColumnCount() != 4 {
		t.Errorf("expected header only, got %d rows %d cols", table.GetRowCount(), table.GetColumnCount())
	}
}
