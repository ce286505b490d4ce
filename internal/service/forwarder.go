package service

import (
	"context"
	"time"

	"github.com/iliyamo/venue-operations/internal/notify"
)

const (
	defaultBrokerBacklog = 1024
	defaultBrokerTimeout = 2 * time.Second
)

// WithBrokerBacklog bounds the events waiting for the broker.  Events past
// the bound are dropped and counted.
func WithBrokerBacklog(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.brokerBacklog = n
		}
	}
}

// WithBrokerTimeout bounds each broker publish.
func WithBrokerTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.brokerTimeout = d
		}
	}
}

// forward queues ev for the broker without ever blocking the mutation that
// produced it.
func (e *Engine) forward(ev notify.Event) {
	if e.outbox == nil {
		return
	}
	select {
	case e.outbox <- ev:
	default:
		e.metrics.BrokerDropped()
		e.metrics.EffectFailed("broker")
		e.logger.Warn("broker backlog full, event dropped", "event", ev.Name, "event_id", ev.EventID, "seq", ev.Seq)
	}
}

// RunForwarder drains the broker backlog until ctx is done.  On the way out
// it keeps publishing what is already queued for at most one publish
// timeout and drops the rest.  Without a broker it returns at once.
func (e *Engine) RunForwarder(ctx context.Context) {
	if e.outbox == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	for {
		if ctx.Err() != nil {
			e.flush(detached)
			return
		}
		select {
		case <-ctx.Done():
		case ev := <-e.outbox:
			e.send(detached, ev)
		}
	}
}

func (e *Engine) flush(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, e.brokerTimeout)
	defer cancel()
	for {
		select {
		case ev := <-e.outbox:
			if ctx.Err() != nil {
				e.metrics.BrokerDropped()
				e.metrics.EffectFailed("broker")
				continue
			}
			e.send(ctx, ev)
		default:
			return
		}
	}
}

func (e *Engine) send(ctx context.Context, ev notify.Event) {
	ctx, cancel := context.WithTimeout(ctx, e.brokerTimeout)
	defer cancel()
	if err := e.broker.Publish(ctx, ev); err != nil {
		e.metrics.EffectFailed("broker")
		e.logger.Warn("event forward failed", "event", ev.Name, "event_id", ev.EventID, "error", err)
	}
}
