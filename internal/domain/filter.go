package domain

// MarketFilters is a declarative predicate over markets. Zero values mean the
// constraint is absent: an empty Category or SearchQuery and nil probability
// bounds match everything.
type MarketFilters struct {
	Category       string   `json:"category,omitempty"`
	MinProbability *float64 `json:"minProbability,omitempty"`
	MaxProbability *float64 `json:"maxProbability,omitempty"`
	SearchQuery    string   `json:"searchQuery,omitempty"`
}

// IsZero reports whether no constraint is set.
func (f MarketFilters) IsZero() bool {
	return f.Category == "" && f.MinProbability == nil && f.MaxProbability == nil && f.SearchQuery == ""
}
