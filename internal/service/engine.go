package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/venue-operations/internal/apperr"
	"github.com/iliyamo/venue-operations/internal/cache"
	"github.com/iliyamo/venue-operations/internal/clock"
	"github.com/iliyamo/venue-operations/internal/config"
	"github.com/iliyamo/venue-operations/internal/metrics"
	"github.com/iliyamo/venue-operations/internal/model"
	"github.com/iliyamo/venue-operations/internal/notify"
)

const defaultReadTimeout = 3 * time.Second

// Broker forwards committed events outside the process.
type Broker interface {
	Publish(ctx context.Context, ev notify.Event) error
}

// Engine is the entry point of the venue operation state engine.  Reads go
// through the cache coordinator; mutations run in the managers and the
// engine applies their effects once the write has committed: caches first,
// then the in-process hub, then the broker backlog drained by RunForwarder.
// A failing effect is logged and counted but never undoes or fails the
// committed write.
type Engine struct {
	cache   *cache.Coordinator
	hub     *notify.Hub
	broker  Broker
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics

	readTimeout   time.Duration
	brokerBacklog int
	brokerTimeout time.Duration
	outbox        chan notify.Event

	layouts   *LayoutAssembler
	stats     *StatsAggregator
	lifecycle *Lifecycle
	locks     *LockManager
	search    *Searcher
	store     Store
}

// Option customises an Engine.
type Option func(*Engine)

// WithBroker forwards every applied event to b.  Publishing happens in
// RunForwarder, off the mutation path.
func WithBroker(b Broker) Option { return func(e *Engine) { e.broker = b } }

// WithClock replaces the system clock.
func WithClock(c clock.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithMetrics records mutation and effect counters.
func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithReadTimeout bounds layout, statistics and search reads.
func WithReadTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.readTimeout = d
		}
	}
}

// NewEngine wires the managers over store.  A nil coordinator or hub is
// replaced by a pass-through coordinator and a private hub.
func NewEngine(store Store, c *cache.Coordinator, hub *notify.Hub, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		cache:         c,
		hub:           hub,
		clock:         clock.NewSystem(),
		logger:        logger.With("component", "engine"),
		readTimeout:   defaultReadTimeout,
		brokerBacklog: defaultBrokerBacklog,
		brokerTimeout: defaultBrokerTimeout,
		store:         store,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = cache.New(nil, config.CacheConfig{}, logger, nil)
	}
	if e.hub == nil {
		e.hub = notify.NewHub(logger)
	}
	if e.broker != nil {
		e.outbox = make(chan notify.Event, e.brokerBacklog)
	}
	e.layouts = NewLayoutAssembler(store, e.clock)
	e.stats = NewStatsAggregator(store)
	e.lifecycle = NewLifecycle(store, e.clock)
	e.locks = NewLockManager(store, e.clock)
	e.search = NewSearcher(store)
	return e
}

// Hub returns the change notifier observers register with.
func (e *Engine) Hub() *notify.Hub { return e.hub }

// GetLayout returns the layout tree of eventID.  refresh bypasses the cache
// lookup and repopulates it.
func (e *Engine) GetLayout(ctx context.Context, eventID uint64, f model.LayoutFilter, refresh bool) (*model.LayoutTree, error) {
	ctx, cancel := context.WithTimeout(ctx, e.readTimeout)
	defer cancel()
	return e.cache.Layout(ctx, eventID, f, refresh, func(ctx context.Context) (*model.LayoutTree, error) {
		return e.layouts.Build(ctx, eventID, f)
	})
}

// GetStatistics returns the statistics snapshot of eventID.
func (e *Engine) GetStatistics(ctx context.Context, eventID uint64, refresh bool) (*model.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, e.readTimeout)
	defer cancel()
	return e.cache.Stats(ctx, eventID, refresh, func(ctx context.Context) (*model.Stats, error) {
		return e.stats.Compute(ctx, eventID)
	})
}

// Search runs the cross-entity search; at most 20 hits, 10 per family.
func (e *Engine) Search(ctx context.Context, eventID uint64, text string, typ *model.SearchType) ([]model.SearchHit, error) {
	ctx, cancel := context.WithTimeout(ctx, e.readTimeout)
	defer cancel()
	return e.search.Search(ctx, eventID, text, typ)
}

// GetTable reads one table, uncached.
func (e *Engine) GetTable(ctx context.Context, id uint64) (*model.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, e.readTimeout)
	defer cancel()
	return e.store.GetTable(ctx, id)
}

// GetTab reads one tab, uncached.
func (e *Engine) GetTab(ctx context.Context, id uint64) (*model.Tab, error) {
	ctx, cancel := context.WithTimeout(ctx, e.readTimeout)
	defer cancel()
	return e.store.GetTab(ctx, id)
}

// ListActiveLocks returns the locks of eventID still in force.
func (e *Engine) ListActiveLocks(ctx context.Context, eventID uint64) ([]model.Lock, error) {
	ctx, cancel := context.WithTimeout(ctx, e.readTimeout)
	defer cancel()
	return e.locks.ListActiveLocks(ctx, eventID)
}

// SetTableStatus moves a table to a new status.
func (e *Engine) SetTableStatus(ctx context.Context, in SetTableStatusInput) (*model.Table, error) {
	return run(ctx, e, "set_table_status", func() (*model.Table, Effects, error) {
		return e.lifecycle.SetTableStatus(ctx, in)
	})
}

// OpenTab opens a tab, optionally occupying a table.
func (e *Engine) OpenTab(ctx context.Context, in OpenTabInput) (*model.Tab, error) {
	return run(ctx, e, "open_tab", func() (*model.Tab, Effects, error) {
		return e.lifecycle.OpenTab(ctx, in)
	})
}

// CloseTab closes an open tab and frees its table.
func (e *Engine) CloseTab(ctx context.Context, tabID, actorID uint64) (*model.Tab, error) {
	return run(ctx, e, "close_tab", func() (*model.Tab, Effects, error) {
		return e.lifecycle.CloseTab(ctx, tabID, actorID)
	})
}

// AddParticipant joins a person to a tab.
func (e *Engine) AddParticipant(ctx context.Context, tabID uint64, clientID *uint64, actorID uint64) (*model.Participant, error) {
	return run(ctx, e, "add_participant", func() (*model.Participant, Effects, error) {
		return e.lifecycle.AddParticipant(ctx, tabID, clientID, actorID)
	})
}

// RemoveParticipant takes a person off a tab.
func (e *Engine) RemoveParticipant(ctx context.Context, participantID, actorID uint64) (*model.Participant, error) {
	return run(ctx, e, "remove_participant", func() (*model.Participant, Effects, error) {
		return e.lifecycle.RemoveParticipant(ctx, participantID, actorID)
	})
}

// IssueCard issues a prepaid card.
func (e *Engine) IssueCard(ctx context.Context, in IssueCardInput) (*model.Card, error) {
	return run(ctx, e, "issue_card", func() (*model.Card, Effects, error) {
		return e.lifecycle.IssueCard(ctx, in)
	})
}

// CreateLock locks an entity.
func (e *Engine) CreateLock(ctx context.Context, in CreateLockInput) (*model.Lock, error) {
	return run(ctx, e, "create_lock", func() (*model.Lock, Effects, error) {
		return e.locks.CreateLock(ctx, in)
	})
}

// CancelLock releases a lock.
func (e *Engine) CancelLock(ctx context.Context, lockID, actorID uint64) (*model.Lock, error) {
	return run(ctx, e, "cancel_lock", func() (*model.Lock, Effects, error) {
		return e.locks.CancelLock(ctx, lockID, actorID)
	})
}

// ReapExpiredLocks releases every expired temporary lock.  Effects of the
// locks released before a failure are still applied.
func (e *Engine) ReapExpiredLocks(ctx context.Context) (int, error) {
	n, fx, err := e.locks.ReapExpired(ctx)
	e.Apply(ctx, fx)
	if n > 0 {
		e.metrics.LocksReaped(n)
		e.logger.Info("expired locks released", "count", n)
	}
	return n, err
}

func run[T any](ctx context.Context, e *Engine, op string, fn func() (*T, Effects, error)) (*T, error) {
	v, fx, err := fn()
	if err != nil {
		e.metrics.Mutation(op, apperr.KindOf(err).String())
		if apperr.IsStorage(err) {
			e.logger.Error("mutation failed", "op", op, "error", err)
		}
		return nil, err
	}
	e.metrics.Mutation(op, "ok")
	e.Apply(ctx, fx)
	return v, nil
}

// Apply performs the effects of a committed mutation.  It runs detached from
// the caller's cancellation: a client hanging up after the commit must not
// leave stale caches behind.
func (e *Engine) Apply(ctx context.Context, fx Effects) {
	if fx.Empty() {
		return
	}
	ctx = context.WithoutCancel(ctx)

	for _, id := range fx.InvalidateEvents {
		if _, err := e.cache.InvalidateEvent(ctx, id); err != nil {
			e.metrics.EffectFailed("invalidate")
			e.logger.Warn("cache invalidation failed", "event_id", id, "error", err)
		}
	}
	for _, ev := range fx.Events {
		stamped, _ := e.hub.PublishStamped(ev)
		e.forward(stamped)
	}
}
