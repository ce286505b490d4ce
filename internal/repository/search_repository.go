package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/venue-operations/internal/model"
)

// SearchRepo runs the per-family substring lookups of the cross-entity
// search.  Each query is capped by the caller-supplied limit and ordered
// within its own family only.
type SearchRepo struct {
	db *sql.DB
}

// NewSearchRepo returns a new SearchRepo bound to the given database.
func NewSearchRepo(db *sql.DB) *SearchRepo { return &SearchRepo{db: db} }

// likePattern wraps text in % after escaping LIKE metacharacters.
func likePattern(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(text) + "%"
}

func (r *SearchRepo) hits(ctx context.Context, op, query string, scan func(*sql.Rows) (model.SearchHit, error), args ...any) ([]model.SearchHit, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()

	var out []model.SearchHit
	for rows.Next() {
		h, err := scan(rows)
		if err != nil {
			return nil, mapErr(op, err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(op, err)
	}
	return out, nil
}

// SearchClients matches clients by tax-id fragment.  Clients are global, so
// no event scope applies.
func (r *SearchRepo) SearchClients(ctx context.Context, taxID string, limit int) ([]model.SearchHit, error) {
	return r.hits(ctx, "search clients",
		`SELECT id, name, tax_id, phone FROM clients WHERE tax_id LIKE ? ORDER BY name, id LIMIT ?`,
		func(rows *sql.Rows) (model.SearchHit, error) {
			var h model.SearchHit
			var phone sql.Null[string]
			err := rows.Scan(&h.ID, &h.Title, &h.Subtitle, &phone)
			h.Type = model.SearchClient
			if phone.Valid {
				h.Extra = map[string]any{"phone": phone.V}
			}
			return h, err
		}, likePattern(taxID), limit)
}

// SearchTables matches tables of eventID by number or name fragment.
func (r *SearchRepo) SearchTables(ctx context.Context, eventID uint64, text string, limit int) ([]model.SearchHit, error) {
	p := likePattern(text)
	return r.hits(ctx, "search tables",
		`SELECT t.id, t.number, t.name, t.status, a.name, t.capacity`+tableFrom+`
		 WHERE l.event_id = ? AND (t.number LIKE ? OR t.name LIKE ?)
		 ORDER BY LENGTH(t.number), t.number LIMIT ?`,
		func(rows *sql.Rows) (model.SearchHit, error) {
			var h model.SearchHit
			var area string
			var capacity int
			err := rows.Scan(&h.ID, &h.Title, &h.Subtitle, &h.Status, &area, &capacity)
			h.Type = model.SearchTable
			h.Extra = map[string]any{"area": area, "capacity": capacity}
			return h, err
		}, eventID, p, p, limit)
}

// SearchTabs matches tabs of eventID by number fragment, newest first.
func (r *SearchRepo) SearchTabs(ctx context.Context, eventID uint64, text string, limit int) ([]model.SearchHit, error) {
	return r.hits(ctx, "search tabs",
		`SELECT id, number, kind, status, uuid, total_cents, table_id FROM tabs
		 WHERE event_id = ? AND number LIKE ?
		 ORDER BY opened_at DESC, id DESC LIMIT ?`,
		func(rows *sql.Rows) (model.SearchHit, error) {
			var h model.SearchHit
			var uuid string
			var total int64
			var tableID sql.Null[uint64]
			err := rows.Scan(&h.ID, &h.Title, &h.Subtitle, &h.Status, &uuid, &total, &tableID)
			h.Type = model.SearchTab
			h.Extra = map[string]any{"uuid": uuid, "total_cents": total}
			if tableID.Valid {
				h.Extra["table_id"] = tableID.V
			}
			return h, err
		}, eventID, likePattern(text), limit)
}

// SearchCards matches cards of eventID by number or access-code fragment.
func (r *SearchRepo) SearchCards(ctx context.Context, eventID uint64, text string, limit int) ([]model.SearchHit, error) {
	p := likePattern(text)
	return r.hits(ctx, "search cards",
		`SELECT id, number, status, credit_cents, limit_cents, consumed_cents FROM cards
		 WHERE event_id = ? AND (number LIKE ? OR access_code LIKE ?)
		 ORDER BY LENGTH(number), number LIMIT ?`,
		func(rows *sql.Rows) (model.SearchHit, error) {
			var h model.SearchHit
			var credit, spendLimit, consumed int64
			err := rows.Scan(&h.ID, &h.Title, &h.Status, &credit, &spendLimit, &consumed)
			h.Type = model.SearchCard
			h.Extra = map[string]any{"credit_cents": credit, "limit_cents": spendLimit, "consumed_cents": consumed}
			return h, err
		}, eventID, p, p, limit)
}
