package notify

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/iliyamo/venue-operations/internal/metrics"
)

// ErrConnectionExists is returned when a connection id is registered twice.
var ErrConnectionExists = errors.New("connection already registered")

const defaultBuffer = 64

// Hub is the connection manager.  It is the only engine-owned mutable shared
// state; the registry is guarded by mu and every venue-event has its own
// room so that publishing to one event never waits on another.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[uint64]*room
	conns  map[string]*Subscription
	buffer int

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// room serialises publishing within one venue-event.  Rooms outlive their
// observers so that seq never restarts.
type room struct {
	mu   sync.Mutex
	seq  uint64
	subs map[string]*Subscription
}

// Subscription is one registered observer.  Events arrive on C in publish
// order; C is closed when the observer is unregistered.
type Subscription struct {
	ID      string
	EventID uint64
	ch      chan Event
	dropped atomic.Uint64
}

// C returns the delivery channel.
func (s *Subscription) C() <-chan Event { return s.ch }

// Dropped returns how many events were discarded because the observer was
// not draining its channel.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// HubOption customises a Hub.
type HubOption func(*Hub)

// WithBuffer sets the per-observer channel capacity.
func WithBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithMetrics records connection and delivery counters.
func WithMetrics(m *metrics.Metrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		rooms:  make(map[uint64]*room),
		conns:  make(map[string]*Subscription),
		buffer: defaultBuffer,
		logger: logger.With("component", "notify"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds an observer for eventID under the opaque connection id.
func (h *Hub) Register(eventID uint64, connID string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[connID]; ok {
		return nil, ErrConnectionExists
	}
	r := h.roomLocked(eventID)
	sub := &Subscription{ID: connID, EventID: eventID, ch: make(chan Event, h.buffer)}
	r.mu.Lock()
	r.subs[connID] = sub
	r.mu.Unlock()
	h.conns[connID] = sub
	h.metrics.ObserverConnected()
	h.logger.Debug("observer registered", "conn_id", connID, "event_id", eventID)
	return sub, nil
}

// Unregister removes the observer and closes its channel.  Unknown ids are
// ignored.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub, ok := h.conns[connID]
	if !ok {
		return
	}
	delete(h.conns, connID)
	if r, ok := h.rooms[sub.EventID]; ok {
		r.mu.Lock()
		delete(r.subs, connID)
		close(sub.ch)
		r.mu.Unlock()
	}
	h.metrics.ObserverDisconnected()
	h.logger.Debug("observer unregistered", "conn_id", connID, "event_id", sub.EventID)
}

// Publish delivers ev to every observer of ev.EventID and returns how many
// received it.  An observer whose buffer is full misses the event.  The
// event's sequence number advances even when nobody is listening, so a
// reconnecting observer sees the gap.
func (h *Hub) Publish(ev Event) int {
	_, n := h.PublishStamped(ev)
	return n
}

// PublishStamped is Publish returning the event as delivered, Seq included.
func (h *Hub) PublishStamped(ev Event) (Event, int) {
	h.mu.RLock()
	r := h.rooms[ev.EventID]
	h.mu.RUnlock()
	if r == nil {
		h.mu.Lock()
		r = h.roomLocked(ev.EventID)
		h.mu.Unlock()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ev.Seq = r.seq
	delivered, dropped := 0, 0
	for _, sub := range r.subs {
		select {
		case sub.ch <- ev:
			delivered++
		default:
			sub.dropped.Add(1)
			dropped++
		}
	}
	h.metrics.Notified(delivered, dropped)
	if dropped > 0 {
		h.logger.Warn("observers lagging, notification dropped",
			"event", ev.Name, "event_id", ev.EventID, "dropped", dropped)
	}
	return ev, delivered
}

// Connections returns the number of observers registered for eventID.
func (h *Hub) Connections(eventID uint64) int {
	h.mu.RLock()
	r := h.rooms[eventID]
	h.mu.RUnlock()
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// roomLocked returns the room of eventID, creating it.  h.mu must be held
// for writing.
func (h *Hub) roomLocked(eventID uint64) *room {
	r, ok := h.rooms[eventID]
	if !ok {
		r = &room{subs: make(map[string]*Subscription)}
		h.rooms[eventID] = r
	}
	return r
}
