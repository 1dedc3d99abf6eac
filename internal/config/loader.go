package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MARKETDASH_* environment variable overrides, and
// returns the final Config. A missing file is not an error: every setting has
// a usable default. The returned Config has NOT been validated; the caller
// should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MARKETDASH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty).
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.GammaHost, "MARKETDASH_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.EventURLBase, "MARKETDASH_POLYMARKET_EVENT_URL_BASE")
	setDuration(&cfg.Polymarket.Timeout, "MARKETDASH_POLYMARKET_TIMEOUT")

	// ── Manifold ──
	setStr(&cfg.Manifold.BaseURL, "MARKETDASH_MANIFOLD_BASE_URL")
	setStr(&cfg.Manifold.Sort, "MARKETDASH_MANIFOLD_SORT")
	setDuration(&cfg.Manifold.Timeout, "MARKETDASH_MANIFOLD_TIMEOUT")

	// ── Dashboard ──
	setInt(&cfg.Dashboard.MarketsLimit, "MARKETDASH_DASHBOARD_MARKETS_LIMIT")
	setInt(&cfg.Dashboard.TrendingLimit, "MARKETDASH_DASHBOARD_TRENDING_LIMIT")
	setInt(&cfg.Dashboard.MaxLimit, "MARKETDASH_DASHBOARD_MAX_LIMIT")
	setDuration(&cfg.Dashboard.RefreshInterval, "MARKETDASH_DASHBOARD_REFRESH_INTERVAL")
	setDuration(&cfg.Dashboard.CacheTTL, "MARKETDASH_DASHBOARD_CACHE_TTL")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "MARKETDASH_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "MARKETDASH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARKETDASH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARKETDASH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MARKETDASH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MARKETDASH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MARKETDASH_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.LockTTL, "MARKETDASH_REDIS_LOCK_TTL")

	// ── Server ──
	setInt(&cfg.Server.Port, "MARKETDASH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MARKETDASH_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MARKETDASH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MARKETDASH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MARKETDASH_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MARKETDASH_NOTIFY_EVENTS")
	setInt(&cfg.Notify.EmptyCyclesThreshold, "MARKETDASH_NOTIFY_EMPTY_CYCLES_THRESHOLD")

	// ── Top-level ──
	setStr(&cfg.Mode, "MARKETDASH_MODE")
	setStr(&cfg.LogLevel, "MARKETDASH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
