package config

import (
    "os"
    "time"
)

// CacheConfig defines settings for the engine's cache coordinator.  When
// Enabled is false or no Redis client is configured, every read goes to the
// store.  LayoutTTL bounds how stale a cached layout tree can be while
// absorbing read bursts; StatsTTL is kept short because the aggregate moves
// with every tab.  OpTimeout bounds each Redis call; a call that exceeds it
// is treated as a miss.  Prefix namespaces keys when several services share
// one Redis database.
type CacheConfig struct {
    Enabled   bool
    Prefix    string
    LayoutTTL time.Duration
    StatsTTL  time.Duration
    OpTimeout time.Duration
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:   getenv("CACHE_ENABLED", "true") == "true",
        Prefix:    getenv("CACHE_PREFIX", ""),
        LayoutTTL: parseDur(getenv("CACHE_LAYOUT_TTL", "5m"), 5*time.Minute),
        StatsTTL:  parseDur(getenv("CACHE_STATS_TTL", "30s"), 30*time.Second),
        OpTimeout: parseDur(getenv("CACHE_OP_TIMEOUT", "250ms"), 250*time.Millisecond),
    }
}

// getenv returns the value of key, or def when it is unset or empty.
func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseDur(s string, def time.Duration) time.Duration {
    d, err := time.ParseDuration(s)
    if err != nil || d <= 0 {
        return def
    }
    return d
}
