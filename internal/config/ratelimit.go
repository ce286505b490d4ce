package config

import "time"

// RateLimitConfig configures the Redis token buckets placed in front of the
// staff API.  Terminals poll the layout and statistics, so reads get a
// generous bucket; mutations (POST, PATCH, PUT, DELETE) draw from a
// separate, smaller one.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int           // read bucket size
    WriteCapacity  int           // mutation bucket size
    RefillTokens   int           // tokens added per interval to either bucket
    RefillInterval time.Duration
    TTL            time.Duration // idle buckets expire after TTL
    KeyStrategy    string        // staff_route (default), staff, ip, route, ip_route, ip_staff_route
    Prefix         string
    Debug          bool          // log blocks and expose X-RateLimit-Key
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  Sizes below one are
// raised to one and TTL never drops under five refill intervals, so a
// bucket cannot expire while it is still refilling.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 120),
        WriteCapacity:  envInt("RATE_LIMIT_WRITE_CAPACITY", 30),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 2),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "staff_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    cfg.Capacity = max(cfg.Capacity, 1)
    cfg.WriteCapacity = max(cfg.WriteCapacity, 1)
    cfg.RefillTokens = max(cfg.RefillTokens, 1)
    if cfg.RefillInterval <= 0 {
        cfg.RefillInterval = time.Second
    }
    cfg.TTL = max(cfg.TTL, 5*cfg.RefillInterval)
    return cfg
}

// CapacityFor returns the bucket size for an HTTP method.
func (c RateLimitConfig) CapacityFor(method string) int {
    switch method {
    case "POST", "PUT", "PATCH", "DELETE":
        if c.WriteCapacity > 0 {
            return c.WriteCapacity
        }
    }
    return c.Capacity
}
