package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/venue-operations/internal/config"
)

// DefaultAuditPath is where the audit consumer appends by default.
const DefaultAuditPath = "logs/venue-audit.log"

const (
	auditPrefetch = 50
	maxBackoff    = 30 * time.Second
)

// errMalformed marks a message that can never be written, whatever the
// state of the audit file.
var errMalformed = errors.New("malformed audit message")

// AuditConsumer drains the audit queue, bound to every event on the
// exchange, and appends one line per event to a local file.  A malformed
// message is rejected without requeue so it cannot loop; a message that
// failed on the file goes back to the queue.
type AuditConsumer struct {
	url      string
	exchange string
	queue    string
	path     string
	logger   *slog.Logger

	mu sync.Mutex
}

// NewAuditConsumer returns a consumer writing to path, or DefaultAuditPath
// when path is empty.
func NewAuditConsumer(cfg config.AMQPConfig, path string, logger *slog.Logger) *AuditConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = DefaultAuditPath
	}
	return &AuditConsumer{
		url:      cfg.URL,
		exchange: cfg.Exchange,
		queue:    cfg.AuditQueue,
		path:     path,
		logger:   logger.With("component", "audit-consumer"),
	}
}

// Run consumes until ctx is done, reconnecting with exponential backoff
// whenever the broker goes away.  It returns ctx.Err().
func (c *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.DialConfig(c.url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
		if err != nil {
			c.logger.Warn("failed to dial broker", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(auditPrefetch, 0, false); err != nil {
		c.logger.Warn("set QoS failed", "error", err)
	}
	if err := declareExchange(ch, c.exchange); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(c.queue, "#", c.exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.logger.Info("audit consumer started", "queue", c.queue, "exchange", c.exchange)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.Body); err != nil {
				requeue := !errors.Is(err, errMalformed)
				c.logger.Warn("handle message failed", "error", err, "requeue", requeue)
				_ = d.Nack(false, requeue)
				if requeue && !sleep(ctx, time.Second) {
					return ctx.Err()
				}
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handle appends the audit line for one message body.
func (c *AuditConsumer) handle(body []byte) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if env.Name == "" {
		return fmt.Errorf("%w: envelope without event name", errMalformed)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(formatLine(env)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// formatLine renders one single-line, human-friendly audit entry.
func formatLine(env Envelope) string {
	payload := string(env.Payload)
	if payload == "" {
		payload = "null"
	}
	return fmt.Sprintf("[%s] %s | event_id=%d | seq=%d | actor_id=%d | message_id=%s | payload=%s\n",
		env.OccurredAt, env.Name, env.EventID, env.Seq, env.ActorID, env.MessageID, payload)
}

// sleep waits d or until ctx is done and reports whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
