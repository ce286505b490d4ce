package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/venue-operations/internal/model"
)

// TabRepo provides access to the tabs and tab_participants tables.  A tab
// occupies its table while its status is open or blocked; the generated
// active_table_id column and its unique key enforce that at the storage
// layer.
type TabRepo struct {
	db *sql.DB
}

// NewTabRepo returns a new TabRepo bound to the given database.
func NewTabRepo(db *sql.DB) *TabRepo { return &TabRepo{db: db} }

const tabColumns = `id, uuid, event_id, table_id, number, client_id, kind, notes, opened_by, total_cents,
	settings, status, opened_at, closed_at`

// GetTab returns the tab with the given id or a NotFound error.
func (r *TabRepo) GetTab(ctx context.Context, id uint64) (*model.Tab, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `SELECT `+tabColumns+` FROM tabs WHERE id = ?`, id)
	var (
		t        model.Tab
		tableID  sql.Null[uint64]
		clientID sql.Null[uint64]
		notes    sql.Null[string]
		closedAt sql.Null[time.Time]
	)
	if err := row.Scan(&t.ID, &t.UUID, &t.EventID, &tableID, &t.Number, &clientID, &t.Kind, &notes,
		&t.OpenedBy, &t.TotalCents, &t.Settings, &t.Status, &t.OpenedAt, &closedAt); err != nil {
		return nil, notFoundOr(err, "tab", id, "get tab")
	}
	t.TableID = nullPtr(tableID)
	t.ClientID = nullPtr(clientID)
	t.Notes = nullPtr(notes)
	t.ClosedAt = nullPtr(closedAt)
	return &t, nil
}

// HasActiveTab reports whether an open or blocked tab references tableID.
func (r *TabRepo) HasActiveTab(ctx context.Context, tableID uint64) (bool, error) {
	return exists(ctx, r.db, "check active tab",
		`SELECT EXISTS (SELECT 1 FROM tabs WHERE table_id = ? AND status IN ('open', 'blocked'))`, tableID)
}

// TabNumberExists reports whether number is taken within eventID.
func (r *TabRepo) TabNumberExists(ctx context.Context, eventID uint64, number string) (bool, error) {
	return exists(ctx, r.db, "check tab number",
		`SELECT EXISTS (SELECT 1 FROM tabs WHERE event_id = ? AND number = ?)`, eventID, number)
}

// InsertTab inserts t and fills its ID.
func (r *TabRepo) InsertTab(ctx context.Context, t *model.Tab) error {
	res, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO tabs (uuid, event_id, table_id, number, client_id, kind, notes, opened_by, total_cents,
		 settings, status, opened_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UUID, t.EventID, arg(t.TableID), t.Number, arg(t.ClientID), string(t.Kind), arg(t.Notes), t.OpenedBy,
		t.TotalCents, t.Settings, string(t.Status), t.OpenedAt)
	if err != nil {
		return mapErr("insert tab", err)
	}
	id, err := lastInsertID(res)
	if err != nil {
		return mapErr("insert tab", err)
	}
	t.ID = id
	return nil
}

// UpdateTabStatus moves a tab to status.  closedAt is stored as given, NULL
// when nil.
func (r *TabRepo) UpdateTabStatus(ctx context.Context, id uint64, status model.TabStatus, closedAt *time.Time) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE tabs SET status = ?, closed_at = ? WHERE id = ?`, string(status), arg(closedAt), id)
	return mapErr("update tab status", err)
}

// GetParticipant returns one participant row or a NotFound error.
func (r *TabRepo) GetParticipant(ctx context.Context, id uint64) (*model.Participant, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, tab_id, client_id, is_active, joined_at FROM tab_participants WHERE id = ?`, id)
	var p model.Participant
	var clientID sql.Null[uint64]
	if err := row.Scan(&p.ID, &p.TabID, &clientID, &p.IsActive, &p.JoinedAt); err != nil {
		return nil, notFoundOr(err, "participant", id, "get participant")
	}
	p.ClientID = nullPtr(clientID)
	return &p, nil
}

// InsertParticipant attaches a person to a tab and fills p.ID.
func (r *TabRepo) InsertParticipant(ctx context.Context, p *model.Participant) error {
	res, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO tab_participants (tab_id, client_id, is_active, joined_at) VALUES (?, ?, ?, ?)`,
		p.TabID, arg(p.ClientID), p.IsActive, p.JoinedAt)
	if err != nil {
		return mapErr("insert participant", err)
	}
	id, err := lastInsertID(res)
	if err != nil {
		return mapErr("insert participant", err)
	}
	p.ID = id
	return nil
}

// DeactivateParticipant removes a participant from the live headcount.
func (r *TabRepo) DeactivateParticipant(ctx context.Context, id uint64, at time.Time) error {
	_, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE tab_participants SET is_active = 0, left_at = ? WHERE id = ?`, at, id)
	return mapErr("deactivate participant", err)
}
