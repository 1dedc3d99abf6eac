package domain

import "time"

// Bus channels carrying refresh snapshots.
const (
	ChannelMarkets  = "ch:markets"
	ChannelTrending = "ch:trending"
)

// Snapshot is the envelope published after every refresh cycle.
type Snapshot struct {
	Kind        string         `json:"kind"` // "markets" or "trending"
	Limit       int            `json:"limit"`
	Markets     []Market       `json:"markets"`
	Counts      map[Source]int `json:"counts"`
	RefreshedAt time.Time      `json:"refreshedAt"`
}

// DashboardStatus summarizes the running configuration for clients.
type DashboardStatus struct {
	Mode            string   `json:"mode"`
	Sources         []Source `json:"sources"`
	MarketsLimit    int      `json:"marketsLimit"`
	TrendingLimit   int      `json:"trendingLimit"`
	RefreshInterval string   `json:"refreshInterval"`
	CacheBackend    string   `json:"cacheBackend"`
}
