package redis

import (
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestClientKey(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()

	tests := []struct {
		prefix string
		parts  []string
		want   string
	}{
		{prefix: "", parts: []string{"query", "markets:30"}, want: "marketdash:query:markets:30"},
		{prefix: "staging", parts: []string{"lock", "query:trending-markets:6"}, want: "staging:lock:query:trending-markets:6"},
		{prefix: "dash:", parts: []string{"ch:markets"}, want: "dash:ch:markets"},
	}
	for _, tt := range tests {
		if got := NewFromRedis(rdb, tt.prefix).Key(tt.parts...); got != tt.want {
			t.Errorf("Key(%v) with prefix %q = %q, want %q", tt.parts, tt.prefix, got, tt.want)
		}
	}
}

func TestHasPattern(t *testing.T) {
	tests := map[string]bool{
		"ch:markets":  false,
		"ch:*":        true,
		"ch:trend?ng": true,
		"ch:[mt]*":    true,
	}
	for channel, want := range tests {
		if got := hasPattern(channel); got != want {
			t.Errorf("hasPattern(%q) = %v, want %v", channel, got, want)
		}
	}
}
