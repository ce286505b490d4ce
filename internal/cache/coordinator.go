// Package cache is the cache-aside layer in front of the layout assembler and
// the statistics aggregator.  Reads check Redis first and populate it on a
// miss; mutations never update cached values, they bump the venue-event's
// generation and delete every key of it.  A reader only stores what it built
// if the generation is unchanged, so a load racing a commit cannot pin a
// stale value.  Any Redis fault is absorbed: the coordinator logs it, counts
// it and answers from the store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/venue-operations/internal/config"
	"github.com/iliyamo/venue-operations/internal/metrics"
	"github.com/iliyamo/venue-operations/internal/model"
)

const (
	kindLayout = "layout"
	kindStats  = "stats"

	scanCount = 200
)

// errStale aborts a store whose generation moved during the load.
var errStale = errors.New("generation moved")

// Coordinator owns the layout and statistics key spaces.
type Coordinator struct {
	rdb       *redis.Client
	enabled   bool
	prefix    string
	layoutTTL time.Duration
	statsTTL  time.Duration
	opTimeout time.Duration

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New builds a coordinator.  A nil client or a disabled config yields a
// pass-through coordinator that always calls the loader.
func New(rdb *redis.Client, cfg config.CacheConfig, logger *slog.Logger, m *metrics.Metrics) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		rdb:       rdb,
		enabled:   cfg.Enabled && rdb != nil,
		prefix:    cfg.Prefix,
		layoutTTL: cfg.LayoutTTL,
		statsTTL:  cfg.StatsTTL,
		opTimeout: cfg.OpTimeout,
		logger:    logger.With("component", "cache"),
		metrics:   m,
	}
	if c.layoutTTL <= 0 {
		c.layoutTTL = 5 * time.Minute
	}
	if c.statsTTL <= 0 {
		c.statsTTL = 30 * time.Second
	}
	if c.opTimeout <= 0 {
		c.opTimeout = 250 * time.Millisecond
	}
	return c
}

// Enabled reports whether reads are served from Redis.
func (c *Coordinator) Enabled() bool { return c.enabled }

// Layout returns the cached tree for (eventID, filter) or builds it with load.
// refresh skips the lookup but still stores the rebuilt tree.
func (c *Coordinator) Layout(ctx context.Context, eventID uint64, f model.LayoutFilter, refresh bool,
	load func(context.Context) (*model.LayoutTree, error)) (*model.LayoutTree, error) {
	return getOrLoad(ctx, c, kindLayout, eventID, c.key(LayoutKey(eventID, f)), c.layoutTTL, refresh, load)
}

// Stats returns the cached statistics snapshot or builds it with load.
func (c *Coordinator) Stats(ctx context.Context, eventID uint64, refresh bool,
	load func(context.Context) (*model.Stats, error)) (*model.Stats, error) {
	return getOrLoad(ctx, c, kindStats, eventID, c.key(StatsKey(eventID)), c.statsTTL, refresh, load)
}

// InvalidateEvent deletes every layout key of eventID, whatever the filters,
// and its statistics key.  Deleting keys that are already absent is not an
// error.  It returns the number of keys removed.
func (c *Coordinator) InvalidateEvent(ctx context.Context, eventID uint64) (int, error) {
	if !c.enabled {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 4*c.opTimeout)
	defer cancel()

	// Bump first: a reader that loaded before the commit must fail its store.
	if err := c.rdb.Incr(ctx, c.key(GenerationKey(eventID))).Err(); err != nil {
		c.metrics.CacheError("incr")
		return 0, err
	}
	keys := []string{c.key(StatsKey(eventID))}
	pattern := escapeGlob(c.key(layoutPrefix(eventID))) + "*"
	iter := c.rdb.Scan(ctx, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.metrics.CacheError("scan")
		return 0, err
	}

	removed := 0
	for start := 0; start < len(keys); start += scanCount {
		end := min(start+scanCount, len(keys))
		n, err := c.rdb.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			c.metrics.CacheError("del")
			return removed, err
		}
		removed += int(n)
	}
	c.metrics.Invalidated(removed)
	c.logger.Debug("cache invalidated", "event_id", eventID, "keys", removed)
	return removed, nil
}

func (c *Coordinator) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func getOrLoad[T any](ctx context.Context, c *Coordinator, kind string, eventID uint64, key string, ttl time.Duration,
	refresh bool, load func(context.Context) (*T, error)) (*T, error) {
	if !c.enabled {
		return load(ctx)
	}

	if !refresh {
		if v, ok := c.lookup(ctx, kind, key, new(T)); ok {
			c.metrics.CacheRequest(kind, "hit")
			return v.(*T), nil
		}
		c.metrics.CacheRequest(kind, "miss")
	} else {
		c.metrics.CacheRequest(kind, "refresh")
	}

	gen, ok := c.generation(ctx, eventID)
	val, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		c.store(ctx, eventID, gen, key, val, ttl)
	}
	return val, nil
}

// generation reads the current generation of eventID.  An absent counter is
// generation "0"; a failed read reports false and the caller skips the store.
func (c *Coordinator) generation(ctx context.Context, eventID uint64) (string, bool) {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	gen, err := c.rdb.Get(opCtx, c.key(GenerationKey(eventID))).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "0", true
	case err != nil:
		c.metrics.CacheError("get")
		c.logger.Warn("cache generation unreadable, not storing", "event_id", eventID, "error", err)
		return "", false
	}
	return gen, true
}

// lookup fails open: a timeout, a connection error or a corrupt payload are
// all reported as a miss.
func (c *Coordinator) lookup(ctx context.Context, kind, key string, dst any) (any, bool) {
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	raw, err := c.rdb.Get(opCtx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.metrics.CacheError("get")
			c.logger.Warn("cache read failed, using store", "key", key, "error", err)
		}
		return nil, false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.metrics.CacheError("decode")
		c.logger.Warn("cache entry corrupt, using store", "key", key, "kind", kind, "error", err)
		return nil, false
	}
	return dst, true
}

// store writes val under key if eventID is still at generation gen.  The
// generation key is watched, so an invalidation landing between the check
// and the write aborts it.
func (c *Coordinator) store(ctx context.Context, eventID uint64, gen, key string, val any, ttl time.Duration) {
	payload, err := json.Marshal(val)
	if err != nil {
		c.metrics.CacheError("encode")
		return
	}
	// Detached from the request: a client hanging up must not leave the
	// freshly built value unstored.
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opTimeout)
	defer cancel()
	genKey := c.key(GenerationKey(eventID))
	err = c.rdb.Watch(opCtx, func(tx *redis.Tx) error {
		cur, err := tx.Get(opCtx, genKey).Result()
		if errors.Is(err, redis.Nil) {
			cur, err = "0", nil
		}
		if err != nil {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(opCtx, func(pipe redis.Pipeliner) error {
			pipe.Set(opCtx, key, payload, ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
	case errors.Is(err, errStale), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("cache store skipped, event invalidated during load", "key", key)
	default:
		c.metrics.CacheError("set")
		c.logger.Warn("cache write failed", "key", key, "error", err)
	}
}
