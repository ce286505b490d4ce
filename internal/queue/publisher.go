package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/venue-operations/internal/config"
	"github.com/iliyamo/venue-operations/internal/metrics"
	"github.com/iliyamo/venue-operations/internal/notify"
)

const dialTimeout = 5 * time.Second

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher closed")

// Publisher forwards engine events to a durable topic exchange, one
// persistent message per event with the event name as routing key.  The
// connection is opened lazily, kept across publishes and re-dialled after a
// failure.  Errors are logged and returned; the engine never fails a
// committed write because of them.
type Publisher struct {
	url      string
	exchange string
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// NewPublisher returns a publisher for cfg.  Nothing is dialled yet.
func NewPublisher(cfg config.AMQPConfig, logger *slog.Logger, m *metrics.Metrics) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		url:      cfg.URL,
		exchange: cfg.Exchange,
		logger:   logger.With("component", "amqp-publisher"),
		metrics:  m,
	}
}

// Publish sends ev to the exchange.
func (p *Publisher) Publish(ctx context.Context, ev notify.Event) error {
	msg, err := message(ev)
	if err != nil {
		p.metrics.BrokerPublish(false)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	if err := ctx.Err(); err != nil {
		p.metrics.BrokerPublish(false)
		return err
	}
	ch, err := p.channel(ctx)
	if err != nil {
		p.metrics.BrokerPublish(false)
		p.logger.Warn("rabbitmq: channel unavailable", "error", err)
		return err
	}
	if err := ch.PublishWithContext(ctx, p.exchange, ev.Name, false, false, msg); err != nil {
		p.reset()
		p.metrics.BrokerPublish(false)
		p.logger.Warn("rabbitmq: publish failed", "event", ev.Name, "error", err)
		return fmt.Errorf("publish %s: %w", ev.Name, err)
	}
	p.metrics.BrokerPublish(true)
	return nil
}

// Close shuts the connection down.  Later publishes fail fast.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return p.reset()
}

// channel returns the open channel, dialling when there is none.  The dial
// and the AMQP handshake honour ctx's deadline.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	_ = p.reset()

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: dialer(ctx)})
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := declareExchange(ch, p.exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	p.logger.Info("rabbitmq: publisher connected", "exchange", p.exchange)
	return ch, nil
}

// dialer connects within ctx's deadline, or dialTimeout when that is
// sooner.  The deadline stays on the socket through the handshake; the
// client clears it once the connection is open.
func dialer(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		deadline := time.Now().Add(dialTimeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		conn, err := (&net.Dialer{Deadline: deadline}).DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

func (p *Publisher) reset() error {
	var err error
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	if errors.Is(err, amqp.ErrClosed) {
		err = nil
	}
	return err
}

// message builds the persistent AMQP message for ev.
func message(ev notify.Event) (amqp.Publishing, error) {
	env, err := NewEnvelope(ev)
	if err != nil {
		return amqp.Publishing{}, err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal envelope: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.MessageID,
		Type:         ev.Name,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}

// declareExchange makes sure the durable topic exchange exists.  It is
// idempotent.
func declareExchange(ch *amqp.Channel, name string) error {
	if err := ch.ExchangeDeclare(
		name,    // name
		"topic", // kind
		true,    // durable
		false,   // autoDelete
		false,   // internal
		false,   // noWait
		nil,     // args
	); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	return nil
}
