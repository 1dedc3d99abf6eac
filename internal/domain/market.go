package domain

import "strings"

// Source identifies the platform a market was fetched from.
type Source string

const (
	SourcePolymarket Source = "polymarket"
	SourceManifold   Source = "manifold"
)

// ID prefixes namespace raw platform identifiers so markets from different
// sources never collide.
const (
	PolymarketIDPrefix = "poly-"
	ManifoldIDPrefix   = "manifold-"
)

// Market is the canonical, source-independent view of a prediction market.
// Probability is always a percentage in [0, 100]. Times are epoch
// milliseconds. Empty strings and nil pointers mean the source did not supply
// the field.
type Market struct {
	ID           string   `json:"id"`
	Question     string   `json:"question"`
	Description  string   `json:"description,omitempty"`
	Probability  float64  `json:"probability"`
	Volume       float64  `json:"volume"`
	Liquidity    *float64 `json:"liquidity,omitempty"`
	CreatedTime  *int64   `json:"createdTime,omitempty"`
	CloseTime    *int64   `json:"closeTime,omitempty"`
	ResolvedTime *int64   `json:"resolvedTime,omitempty"`
	Resolution   string   `json:"resolution,omitempty"`
	Category     string   `json:"category,omitempty"`
	Source       Source   `json:"source"`
	URL          string   `json:"url,omitempty"`
	Outcomes     []string `json:"outcomes,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// RawID returns the platform identifier with the source prefix stripped.
func (m Market) RawID() string {
	switch m.Source {
	case SourcePolymarket:
		return strings.TrimPrefix(m.ID, PolymarketIDPrefix)
	case SourceManifold:
		return strings.TrimPrefix(m.ID, ManifoldIDPrefix)
	}
	return m.ID
}

// IsResolved reports whether the source has settled the market.
func (m Market) IsResolved() bool {
	return m.Resolution != "" || m.ResolvedTime != nil
}

// CountBySource tallies markets per platform.
func CountBySource(markets []Market) map[Source]int {
	counts := make(map[Source]int)
	for _, m := range markets {
		counts[m.Source]++
	}
	return counts
}
