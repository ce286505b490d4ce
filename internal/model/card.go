package model

import "time"

// CardStatus is the state of a prepaid card.
type CardStatus string

const (
	CardActive    CardStatus = "active"
	CardBlocked   CardStatus = "blocked"
	CardCancelled CardStatus = "cancelled"
)

// Card is a stored-value credential carried by a guest.  Number is unique
// within the venue-event; AccessCode is derived at issuance and printed on
// the card.
type Card struct {
	ID            uint64       `json:"id"`                  // cards.id
	UUID          string       `json:"uuid"`                // cards.uuid
	EventID       uint64       `json:"event_id"`            // cards.event_id
	GroupID       *uint64      `json:"group_id,omitempty"`  // cards.group_id (nullable)
	Number        string       `json:"number"`              // cards.number
	ClientID      *uint64      `json:"client_id,omitempty"` // cards.client_id (nullable)
	AccessCode    string       `json:"access_code"`         // cards.access_code
	CreditCents   int64        `json:"credit_cents"`        // cards.credit_cents
	LimitCents    int64        `json:"limit_cents"`         // cards.limit_cents
	ConsumedCents int64        `json:"consumed_cents"`      // cards.consumed_cents
	Settings      CardSettings `json:"settings"`            // cards.settings (JSON)
	Status        CardStatus   `json:"status"`              // cards.status
	IssuedBy      uint64       `json:"issued_by"`           // cards.issued_by
	CreatedAt     time.Time    `json:"created_at"`          // cards.created_at
}

// CardSummary lists a card of the requested group alongside the layout tree.
type CardSummary struct {
	ID          uint64     `json:"id"`
	Number      string     `json:"number"`
	Status      CardStatus `json:"status"`
	CreditCents int64      `json:"credit_cents"`
	LimitCents  int64      `json:"limit_cents"`
}
