// Package queue forwards engine events over RabbitMQ and drains them into
// the audit log.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/venue-operations/internal/notify"
)

// Envelope is the wire form of one engine event.  It carries enough for a
// downstream consumer (audit, ERP connector, analytics) to act without
// querying the primary database.  MessageID is unique per publish so
// consumers can drop redeliveries.
type Envelope struct {
	MessageID  string          `json:"message_id"`
	Name       string          `json:"event"`
	EventID    uint64          `json:"event_id"`
	Seq        uint64          `json:"seq,omitempty"`
	ActorID    uint64          `json:"actor_id"`
	OccurredAt string          `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope wraps ev for publishing.
func NewEnvelope(ev notify.Event) (Envelope, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", ev.Name, err)
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return Envelope{
		MessageID:  uuid.NewString(),
		Name:       ev.Name,
		EventID:    ev.EventID,
		Seq:        ev.Seq,
		ActorID:    ev.ActorID,
		OccurredAt: ts.UTC().Format(time.RFC3339),
		Payload:    payload,
	}, nil
}
