package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/venue-operations/internal/model"
)

// TableRepo provides access to the venue_tables table.  The owning
// venue-event of a table is always read through its area and layout, never
// trusted from the denormalised venue_tables.event_id column.
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo returns a new TableRepo bound to the given database.
func NewTableRepo(db *sql.DB) *TableRepo { return &TableRepo{db: db} }

const tableColumns = `t.id, t.area_id, l.event_id, t.number, t.name, t.kind, t.capacity, t.pos_x, t.pos_y,
	t.width, t.height, t.shape, t.min_spend_cents, t.service_fee_pct, t.notes, t.status, t.settings, t.updated_at`

const tableFrom = `
	FROM venue_tables t
	JOIN areas a ON a.id = t.area_id
	JOIN layouts l ON l.id = a.layout_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTable(s rowScanner) (*model.Table, error) {
	var t model.Table
	var notes sql.Null[string]
	if err := s.Scan(&t.ID, &t.AreaID, &t.EventID, &t.Number, &t.Name, &t.Kind, &t.Capacity, &t.PosX, &t.PosY,
		&t.Width, &t.Height, &t.Shape, &t.MinSpendCents, &t.ServiceFeePct, &notes, &t.Status, &t.Settings,
		&t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Notes = nullPtr(notes)
	return &t, nil
}

// GetTable returns the table with the given id or a NotFound error.
func (r *TableRepo) GetTable(ctx context.Context, id uint64) (*model.Table, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `SELECT `+tableColumns+tableFrom+` WHERE t.id = ?`, id)
	t, err := scanTable(row)
	if err != nil {
		return nil, notFoundOr(err, "table", id, "get table")
	}
	return t, nil
}

// GetTableForUpdate locks the table row until the surrounding transaction
// ends.  Concurrent tab openings on the same table queue up here instead of
// both passing the active-tab check.
func (r *TableRepo) GetTableForUpdate(ctx context.Context, id uint64) (*model.Table, error) {
	row := q(ctx, r.db).QueryRowContext(ctx, `SELECT `+tableColumns+tableFrom+` WHERE t.id = ? FOR UPDATE OF t`, id)
	t, err := scanTable(row)
	if err != nil {
		return nil, notFoundOr(err, "table", id, "lock table")
	}
	return t, nil
}

// UpdateTableStatus sets the status of a table.  Notes are replaced only when
// non-nil.
func (r *TableRepo) UpdateTableStatus(ctx context.Context, id uint64, status model.TableStatus, notes *string) error {
	var err error
	if notes != nil {
		_, err = q(ctx, r.db).ExecContext(ctx,
			`UPDATE venue_tables SET status = ?, notes = ? WHERE id = ?`, string(status), *notes, id)
	} else {
		_, err = q(ctx, r.db).ExecContext(ctx,
			`UPDATE venue_tables SET status = ? WHERE id = ?`, string(status), id)
	}
	return mapErr("update table status", err)
}
