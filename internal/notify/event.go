// Package notify is the in-process change notifier.  Lifecycle and lock
// operations publish named events; every observer registered for the same
// venue-event at publish time receives them in publish order.  Delivery is
// at-most-once and there is no replay.
package notify

import (
	"time"

	"github.com/iliyamo/venue-operations/internal/model"
)

// Event names pushed to observers and forwarded to the broker.
const (
	TableUpdated      = "table_updated"
	TabOpened         = "tab_opened"
	TabClosed         = "tab_closed"
	CardIssued        = "card_issued"
	EntityLocked      = "entity_locked"
	EntityUnlocked    = "entity_unlocked"
	ParticipantJoined = "participant_joined"
	ParticipantLeft   = "participant_left"
)

// Event is one notification.  Seq is assigned by the hub and increases by
// one per published event within a venue-event.
type Event struct {
	Name      string    `json:"event"`
	EventID   uint64    `json:"event_id"`
	Seq       uint64    `json:"seq"`
	ActorID   uint64    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TablePayload accompanies table_updated.
type TablePayload struct {
	EventID   uint64            `json:"event_id"`
	TableID   uint64            `json:"table_id"`
	Number    string            `json:"number"`
	NewStatus model.TableStatus `json:"new_status"`
	ActorID   uint64            `json:"actor_id"`
	Timestamp time.Time         `json:"timestamp"`
}

// TabPayload accompanies tab_opened and tab_closed.
type TabPayload struct {
	Tab     model.Tab `json:"tab"`
	ActorID uint64    `json:"actor_id"`
}

// CardPayload accompanies card_issued.  The access code is deliberately
// left out: observers only need to know a card exists.
type CardPayload struct {
	CardID  uint64           `json:"card_id"`
	UUID    string           `json:"uuid"`
	Number  string           `json:"number"`
	GroupID *uint64          `json:"group_id,omitempty"`
	Status  model.CardStatus `json:"status"`
	ActorID uint64           `json:"actor_id"`
}

// LockPayload accompanies entity_locked and entity_unlocked.
type LockPayload struct {
	Lock    model.Lock `json:"lock"`
	ActorID uint64     `json:"actor_id"`
}

// ParticipantPayload accompanies participant_joined and participant_left.
type ParticipantPayload struct {
	Participant model.Participant `json:"participant"`
	TabNumber   string            `json:"tab_number"`
	ActorID     uint64            `json:"actor_id"`
}
