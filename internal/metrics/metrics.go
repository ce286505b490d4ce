// Package metrics holds the Prometheus collectors of the venue engine.  A nil
// *Metrics is valid everywhere and records nothing, so tests and tools can
// run without a registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "venue"

// Metrics groups every collector exported by the service.
type Metrics struct {
	cacheRequests   *prometheus.CounterVec
	cacheErrors     *prometheus.CounterVec
	invalidations   prometheus.Counter
	mutations       *prometheus.CounterVec
	effectFailures  *prometheus.CounterVec
	observers       prometheus.Gauge
	notifications   *prometheus.CounterVec
	locksReaped     prometheus.Counter
	brokerPublishes *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.  A nil registerer
// returns nil metrics.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache lookups by kind (layout, stats) and result (hit, miss, refresh)",
		}, []string{"kind", "result"}),
		cacheErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "errors_total",
			Help:      "Cache faults absorbed by falling back to the store",
		}, []string{"op"}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "invalidated_keys_total",
			Help:      "Keys deleted by prefix invalidation",
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "mutations_total",
			Help:      "Engine mutations by operation and outcome kind",
		}, []string{"op", "outcome"}),
		effectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "effect_failures_total",
			Help:      "Post-commit effects that failed (write kept)",
		}, []string{"effect"}),
		observers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "observers_connected",
			Help:      "Currently registered observer connections",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notifications by result (delivered, dropped)",
		}, []string{"result"}),
		locksReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "locks",
			Name:      "reaped_total",
			Help:      "Expired temporary locks released by the reaper",
		}),
		brokerPublishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broker",
			Name:      "publishes_total",
			Help:      "Events forwarded to the message broker by result (ok, error, dropped)",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.cacheRequests,
		m.cacheErrors,
		m.invalidations,
		m.mutations,
		m.effectFailures,
		m.observers,
		m.notifications,
		m.locksReaped,
		m.brokerPublishes,
	)
	return m
}

func (m *Metrics) CacheRequest(kind, result string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) CacheError(op string) {
	if m == nil {
		return
	}
	m.cacheErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) Invalidated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.invalidations.Add(float64(n))
}

func (m *Metrics) Mutation(op, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) EffectFailed(effect string) {
	if m == nil {
		return
	}
	m.effectFailures.WithLabelValues(effect).Inc()
}

func (m *Metrics) ObserverConnected() {
	if m == nil {
		return
	}
	m.observers.Inc()
}

func (m *Metrics) ObserverDisconnected() {
	if m == nil {
		return
	}
	m.observers.Dec()
}

func (m *Metrics) Notified(delivered, dropped int) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues("delivered").Add(float64(delivered))
	m.notifications.WithLabelValues("dropped").Add(float64(dropped))
}

func (m *Metrics) LocksReaped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.locksReaped.Add(float64(n))
}

func (m *Metrics) BrokerPublish(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.brokerPublishes.WithLabelValues("ok").Inc()
		return
	}
	m.brokerPublishes.WithLabelValues("error").Inc()
}

// BrokerDropped counts an event discarded because the broker backlog was
// full or the forwarder stopped before reaching it.
func (m *Metrics) BrokerDropped() {
	if m == nil {
		return
	}
	m.brokerPublishes.WithLabelValues("dropped").Inc()
}
