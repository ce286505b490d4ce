package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/venue-operations/internal/model"
)

// LayoutRepo reads the layout tree of a venue-event: the layout row, its
// areas, the tables under them and the active tab of each table.
type LayoutRepo struct {
	db *sql.DB
}

// NewLayoutRepo returns a new LayoutRepo bound to the given database.
func NewLayoutRepo(db *sql.DB) *LayoutRepo { return &LayoutRepo{db: db} }

const layoutColumns = `id, event_id, width, height, scale, settings, created_at, updated_at`

// GetLayoutByEvent returns the layout of eventID or a NotFound error.
func (r *LayoutRepo) GetLayoutByEvent(ctx context.Context, eventID uint64) (*model.Layout, error) {
	row := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+layoutColumns+` FROM layouts WHERE event_id = ?`, eventID)
	var l model.Layout
	if err := row.Scan(&l.ID, &l.EventID, &l.Width, &l.Height, &l.Scale, &l.Settings, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, notFoundOr(err, "layout", eventID, "get layout")
	}
	return &l, nil
}

// CreateLayout inserts l and fills its ID.  Two callers racing to create the
// same event's layout get a Conflict from uq_layouts_event.
func (r *LayoutRepo) CreateLayout(ctx context.Context, l *model.Layout) error {
	res, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO layouts (event_id, width, height, scale, settings, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.EventID, l.Width, l.Height, l.Scale, l.Settings, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return mapErr("create layout", err)
	}
	id, err := lastInsertID(res)
	if err != nil {
		return mapErr("create layout", err)
	}
	l.ID = id
	return nil
}

// ListAreas returns the areas of layoutID in display order, honouring the
// active-only and area-kind filters.
func (r *LayoutRepo) ListAreas(ctx context.Context, layoutID uint64, f model.LayoutFilter) ([]model.Area, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, layout_id, name, kind, pos_x, pos_y, width, height, capacity, sort_order,
		is_active, settings, restrictions
		FROM areas WHERE layout_id = ?`)
	args := []any{layoutID}
	if f.ActiveOnly {
		sb.WriteString(` AND is_active = 1`)
	}
	if kind := strings.TrimSpace(f.AreaKind); kind != "" {
		sb.WriteString(` AND kind = ?`)
		args = append(args, kind)
	}
	sb.WriteString(` ORDER BY sort_order, id`)

	rows, err := q(ctx, r.db).QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, mapErr("list areas", err)
	}
	defer rows.Close()

	var areas []model.Area
	for rows.Next() {
		var a model.Area
		if err := rows.Scan(&a.ID, &a.LayoutID, &a.Name, &a.Kind, &a.PosX, &a.PosY, &a.Width, &a.Height,
			&a.Capacity, &a.SortOrder, &a.IsActive, &a.Settings, &a.Restrictions); err != nil {
			return nil, mapErr("scan area", err)
		}
		areas = append(areas, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list areas", err)
	}
	return areas, nil
}

// ListTables returns every table under layoutID, optionally narrowed to one
// status.  Numbers sort naturally ("2" before "10").
func (r *LayoutRepo) ListTables(ctx context.Context, layoutID uint64, f model.LayoutFilter) ([]model.Table, error) {
	query := `SELECT ` + tableColumns + tableFrom + ` WHERE a.layout_id = ?`
	args := []any{layoutID}
	if f.TableStatus != "" {
		query += ` AND t.status = ?`
		args = append(args, string(f.TableStatus))
	}
	query += ` ORDER BY t.area_id, LENGTH(t.number), t.number`

	rows, err := q(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr("list tables", err)
	}
	defer rows.Close()

	var tables []model.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, mapErr("scan table", err)
		}
		tables = append(tables, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list tables", err)
	}
	return tables, nil
}

// ActiveTabSummaries maps table id to the summary of the open or blocked tab
// on that table, with its live participant count.
func (r *LayoutRepo) ActiveTabSummaries(ctx context.Context, eventID uint64) (map[uint64]model.TabSummary, error) {
	const query = `SELECT tb.table_id, tb.id, tb.uuid, tb.number, tb.status, tb.total_cents,
		(SELECT COUNT(*) FROM tab_participants p WHERE p.tab_id = tb.id AND p.is_active = 1)
		FROM tabs tb
		WHERE tb.event_id = ? AND tb.table_id IS NOT NULL AND tb.status IN ('open', 'blocked')`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, mapErr("active tabs", err)
	}
	defer rows.Close()

	out := make(map[uint64]model.TabSummary)
	for rows.Next() {
		var tableID uint64
		var s model.TabSummary
		if err := rows.Scan(&tableID, &s.ID, &s.UUID, &s.Number, &s.Status, &s.TotalCents, &s.Participants); err != nil {
			return nil, mapErr("scan active tab", err)
		}
		out[tableID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("active tabs", err)
	}
	return out, nil
}

// ListGroupCards returns the cards of one card group within eventID.
func (r *LayoutRepo) ListGroupCards(ctx context.Context, eventID, groupID uint64) ([]model.CardSummary, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT id, number, status, credit_cents, limit_cents FROM cards
		 WHERE event_id = ? AND group_id = ? ORDER BY LENGTH(number), number`, eventID, groupID)
	if err != nil {
		return nil, mapErr("list group cards", err)
	}
	defer rows.Close()

	var cards []model.CardSummary
	for rows.Next() {
		var c model.CardSummary
		if err := rows.Scan(&c.ID, &c.Number, &c.Status, &c.CreditCents, &c.LimitCents); err != nil {
			return nil, mapErr("scan card", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("list group cards", err)
	}
	return cards, nil
}
