// Package config defines the top-level configuration for the market dashboard
// and provides validation helpers.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MARKETDASH_* environment variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Manifold   ManifoldConfig   `toml:"manifold"`
	Dashboard  DashboardConfig  `toml:"dashboard"`
	Redis      RedisConfig      `toml:"redis"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds the Gamma API endpoint and the public site used to
// build market links.
type PolymarketConfig struct {
	GammaHost    string   `toml:"gamma_host"`
	EventURLBase string   `toml:"event_url_base"`
	Timeout      duration `toml:"timeout"`
}

// ManifoldConfig holds the Manifold Markets API endpoint and listing order.
type ManifoldConfig struct {
	BaseURL string   `toml:"base_url"`
	Sort    string   `toml:"sort"`
	Timeout duration `toml:"timeout"`
}

// DashboardConfig controls how many markets are shown and how often the
// listings are refreshed.
type DashboardConfig struct {
	MarketsLimit    int      `toml:"markets_limit"`
	TrendingLimit   int      `toml:"trending_limit"`
	MaxLimit        int      `toml:"max_limit"`
	RefreshInterval duration `toml:"refresh_interval"`
	CacheTTL        duration `toml:"cache_ttl"`
}

// RedisConfig holds Redis connection parameters. When Enabled is false the
// query cache and signal bus run in-process.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	LockTTL    duration `toml:"lock_ttl"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken        string   `toml:"telegram_token"`
	TelegramChatID       string   `toml:"telegram_chat_id"`
	DiscordWebhookURL    string   `toml:"discord_webhook_url"`
	Events               []string `toml:"events"`
	EmptyCyclesThreshold int      `toml:"empty_cycles_threshold"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			GammaHost:    "https://gamma-api.polymarket.com",
			EventURLBase: "https://polymarket.com/event",
			Timeout:      duration{30 * time.Second},
		},
		Manifold: ManifoldConfig{
			BaseURL: "https://api.manifold.markets/v0",
			Sort:    "24-hour-volume",
			Timeout: duration{30 * time.Second},
		},
		Dashboard: DashboardConfig{
			MarketsLimit:    30,
			TrendingLimit:   6,
			MaxLimit:        500,
			RefreshInterval: duration{60 * time.Second},
			CacheTTL:        duration{60 * time.Second},
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
			TLSEnabled: false,
			LockTTL:    duration{15 * time.Second},
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events:               []string{"source_empty", "source_recovered"},
			EmptyCyclesThreshold: 3,
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":   true,
	"tui":      true,
	"snapshot": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validManifoldSorts lists the listing orders the Manifold API accepts.
var validManifoldSorts = map[string]bool{
	"created-time":      true,
	"updated-time":      true,
	"last-bet-time":     true,
	"last-comment-time": true,
	"24-hour-volume":    true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, tui, snapshot)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Sources
	if !isHTTPURL(c.Polymarket.GammaHost) {
		errs = append(errs, fmt.Sprintf("polymarket: gamma_host must be an http(s) URL, got %q", c.Polymarket.GammaHost))
	}
	if !isHTTPURL(c.Polymarket.EventURLBase) {
		errs = append(errs, fmt.Sprintf("polymarket: event_url_base must be an http(s) URL, got %q", c.Polymarket.EventURLBase))
	}
	if c.Polymarket.Timeout.Duration <= 0 {
		errs = append(errs, "polymarket: timeout must be > 0")
	}
	if !isHTTPURL(c.Manifold.BaseURL) {
		errs = append(errs, fmt.Sprintf("manifold: base_url must be an http(s) URL, got %q", c.Manifold.BaseURL))
	}
	if !validManifoldSorts[c.Manifold.Sort] {
		errs = append(errs, fmt.Sprintf("manifold: unknown sort %q", c.Manifold.Sort))
	}
	if c.Manifold.Timeout.Duration <= 0 {
		errs = append(errs, "manifold: timeout must be > 0")
	}

	// Dashboard
	if c.Dashboard.MaxLimit < 1 {
		errs = append(errs, "dashboard: max_limit must be >= 1")
	}
	if c.Dashboard.MarketsLimit < 1 || c.Dashboard.MarketsLimit > c.Dashboard.MaxLimit {
		errs = append(errs, fmt.Sprintf("dashboard: markets_limit must be 1-%d, got %d", c.Dashboard.MaxLimit, c.Dashboard.MarketsLimit))
	}
	if c.Dashboard.TrendingLimit < 1 || c.Dashboard.TrendingLimit > c.Dashboard.MaxLimit {
		errs = append(errs, fmt.Sprintf("dashboard: trending_limit must be 1-%d, got %d", c.Dashboard.MaxLimit, c.Dashboard.TrendingLimit))
	}
	if c.Dashboard.RefreshInterval.Duration < time.Second {
		errs = append(errs, "dashboard: refresh_interval must be >= 1s")
	}
	if c.Dashboard.CacheTTL.Duration <= 0 {
		errs = append(errs, "dashboard: cache_ttl must be > 0")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.LockTTL.Duration <= 0 {
			errs = append(errs, "redis: lock_ttl must be > 0")
		}
	}

	// Server
	if strings.EqualFold(c.Mode, "server") {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}
	if c.Notify.EmptyCyclesThreshold < 1 {
		errs = append(errs, "notify: empty_cycles_threshold must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
