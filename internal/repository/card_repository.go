package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/venue-operations/internal/model"
)

// CardRepo provides access to the cards table.  Card numbers are unique
// within a venue-event (uq_cards_event_number).
type CardRepo struct {
	db *sql.DB
}

// NewCardRepo returns a new CardRepo bound to the given database.
func NewCardRepo(db *sql.DB) *CardRepo { return &CardRepo{db: db} }

// CardNumberExists reports whether number is taken within eventID.
func (r *CardRepo) CardNumberExists(ctx context.Context, eventID uint64, number string) (bool, error) {
	return exists(ctx, r.db, "check card number",
		`SELECT EXISTS (SELECT 1 FROM cards WHERE event_id = ? AND number = ?)`, eventID, number)
}

// InsertCard inserts c and fills its ID.
func (r *CardRepo) InsertCard(ctx context.Context, c *model.Card) error {
	res, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO cards (uuid, event_id, group_id, number, client_id, access_code, credit_cents, limit_cents,
		 consumed_cents, settings, status, issued_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UUID, c.EventID, arg(c.GroupID), c.Number, arg(c.ClientID), c.AccessCode, c.CreditCents, c.LimitCents,
		c.ConsumedCents, c.Settings, string(c.Status), c.IssuedBy, c.CreatedAt)
	if err != nil {
		return mapErr("insert card", err)
	}
	id, err := lastInsertID(res)
	if err != nil {
		return mapErr("insert card", err)
	}
	c.ID = id
	return nil
}
