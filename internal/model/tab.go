package model

import "time"

// TabStatus is the lifecycle state of a tab.  Closed is terminal and outside
// the engine's active-state concerns; settlement happens elsewhere.
type TabStatus string

const (
	TabOpen    TabStatus = "open"
	TabBlocked TabStatus = "blocked"
	TabClosed  TabStatus = "closed"
)

// Active reports whether the tab still counts against its table.
func (s TabStatus) Active() bool { return s == TabOpen || s == TabBlocked }

// TabKind is how the tab is being served.
type TabKind string

const (
	TabKindTable    TabKind = "table"
	TabKindCounter  TabKind = "counter"
	TabKindDelivery TabKind = "delivery"
	TabKindTakeAway TabKind = "takeaway"
)

// Valid reports whether k is a known tab kind.
func (k TabKind) Valid() bool {
	switch k {
	case TabKindTable, TabKindCounter, TabKindDelivery, TabKindTakeAway:
		return true
	}
	return false
}

// Tab is a running bill, optionally tied to a table.  UUID is
// globally unique; Number is typed by staff and unique within the event.
type Tab struct {
	ID         uint64      `json:"id"`                  // tabs.id
	UUID       string      `json:"uuid"`                // tabs.uuid
	EventID    uint64      `json:"event_id"`            // tabs.event_id
	TableID    *uint64     `json:"table_id,omitempty"`  // tabs.table_id (nullable)
	Number     string      `json:"number"`              // tabs.number
	ClientID   *uint64     `json:"client_id,omitempty"` // tabs.client_id (nullable)
	Kind       TabKind     `json:"kind"`                // tabs.kind
	Notes      *string     `json:"notes,omitempty"`     // tabs.notes (nullable)
	OpenedBy   uint64      `json:"opened_by"`           // tabs.opened_by
	TotalCents int64       `json:"total_cents"`         // tabs.total_cents
	Settings   TabSettings `json:"settings"`            // tabs.settings (JSON)
	Status     TabStatus   `json:"status"`              // tabs.status
	OpenedAt   time.Time   `json:"opened_at"`           // tabs.opened_at
	ClosedAt   *time.Time  `json:"closed_at,omitempty"` // tabs.closed_at (nullable)
}

// TabSummary is the slice of an active tab shown on its table in the
// layout tree.
type TabSummary struct {
	ID           uint64    `json:"id"`
	UUID         string    `json:"uuid"`
	Number       string    `json:"number"`
	Status       TabStatus `json:"status"`
	TotalCents   int64     `json:"total_cents"`
	Participants int       `json:"participants"`
}

// Participant is a person attached to a tab.  Only the active flag matters
// to the engine: it drives the live headcount.
type Participant struct {
	ID       uint64    `json:"id"`                  // tab_participants.id
	TabID    uint64    `json:"tab_id"`              // tab_participants.tab_id
	ClientID *uint64   `json:"client_id,omitempty"` // tab_participants.client_id (nullable)
	IsActive bool      `json:"is_active"`           // tab_participants.is_active
	JoinedAt time.Time `json:"joined_at"`           // tab_participants.joined_at
}
