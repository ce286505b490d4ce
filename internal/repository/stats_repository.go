package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/venue-operations/internal/model"
)

// StatsRepo reads the raw counters behind the venue-event statistics.  The
// aggregation into a snapshot happens in the service layer.
type StatsRepo struct {
	db *sql.DB
}

// NewStatsRepo returns a new StatsRepo bound to the given database.
func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{db: db} }

// CountTablesByStatus groups the tables of eventID by status.
func (r *StatsRepo) CountTablesByStatus(ctx context.Context, eventID uint64) (map[model.TableStatus]int, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx,
		`SELECT t.status, COUNT(*)`+tableFrom+` WHERE l.event_id = ? GROUP BY t.status`, eventID)
	if err != nil {
		return nil, mapErr("count tables", err)
	}
	defer rows.Close()

	out := make(map[model.TableStatus]int)
	for rows.Next() {
		var status model.TableStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, mapErr("scan table count", err)
		}
		out[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr("count tables", err)
	}
	return out, nil
}

// TabTotals returns the tab counters of eventID.
func (r *StatsRepo) TabTotals(ctx context.Context, eventID uint64) (model.TabTotals, error) {
	var t model.TabTotals
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(status = 'open'), 0),
		   COALESCE(SUM(status = 'blocked'), 0),
		   COUNT(*),
		   COALESCE(SUM(total_cents), 0)
		 FROM tabs WHERE event_id = ?`, eventID).
		Scan(&t.Open, &t.Blocked, &t.TabsCounted, &t.RevenueCents)
	if err != nil {
		return t, mapErr("tab totals", err)
	}

	err = q(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tab_participants p
		 JOIN tabs tb ON tb.id = p.tab_id
		 WHERE tb.event_id = ? AND p.is_active = 1 AND tb.status IN ('open', 'blocked')`, eventID).
		Scan(&t.Participants)
	if err != nil {
		return t, mapErr("participant count", err)
	}
	return t, nil
}
