package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/venue-operations/internal/apperr"
	"github.com/iliyamo/venue-operations/internal/model"
)

// LockRepo provides access to the locks table.  The generated active_ref
// column is populated only while a lock is active; its unique key admits a
// single active lock per (kind, ref_id).
type LockRepo struct {
	db *sql.DB
}

// NewLockRepo returns a new LockRepo bound to the given database.
func NewLockRepo(db *sql.DB) *LockRepo { return &LockRepo{db: db} }

const lockColumns = `id, event_id, kind, ref_id, reason, detail, created_by, temporary, expires_at, is_active,
	cancelled_by, created_at`

func scanLock(s rowScanner) (*model.Lock, error) {
	var (
		l           model.Lock
		detail      sql.Null[string]
		expiresAt   sql.Null[time.Time]
		cancelledBy sql.Null[uint64]
	)
	if err := s.Scan(&l.ID, &l.EventID, &l.Kind, &l.RefID, &l.Reason, &detail, &l.CreatedBy, &l.Temporary,
		&expiresAt, &l.IsActive, &cancelledBy, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.Detail = nullPtr(detail)
	l.ExpiresAt = nullPtr(expiresAt)
	l.CancelledBy = nullPtr(cancelledBy)
	return &l, nil
}

func (r *LockRepo) list(ctx context.Context, op, query string, args ...any) ([]model.Lock, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapErr(op, err)
	}
	defer rows.Close()

	var locks []model.Lock
	for rows.Next() {
		l, err := scanLock(rows)
		if err != nil {
			return nil, mapErr(op, err)
		}
		locks = append(locks, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(op, err)
	}
	return locks, nil
}

// GetLock returns the lock with the given id or a NotFound error.
func (r *LockRepo) GetLock(ctx context.Context, id uint64) (*model.Lock, error) {
	l, err := scanLock(q(ctx, r.db).QueryRowContext(ctx, `SELECT `+lockColumns+` FROM locks WHERE id = ?`, id))
	if err != nil {
		return nil, notFoundOr(err, "lock", id, "get lock")
	}
	return l, nil
}

// ActiveLockFor returns the lock flagged active on (kind, refID).  Expiry is
// not considered here; callers decide with model.Lock.Effective.
func (r *LockRepo) ActiveLockFor(ctx context.Context, kind model.LockKind, refID uint64) (*model.Lock, error) {
	l, err := scanLock(q(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+lockColumns+` FROM locks WHERE kind = ? AND ref_id = ? AND is_active = 1`, string(kind), refID))
	if err != nil {
		return nil, notFoundOr(err, "lock", refID, "get active lock")
	}
	return l, nil
}

// InsertLock inserts l and fills its ID.
func (r *LockRepo) InsertLock(ctx context.Context, l *model.Lock) error {
	res, err := q(ctx, r.db).ExecContext(ctx,
		`INSERT INTO locks (event_id, kind, ref_id, reason, detail, created_by, temporary, expires_at, is_active,
		 created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.EventID, string(l.Kind), l.RefID, l.Reason, arg(l.Detail), l.CreatedBy, l.Temporary, arg(l.ExpiresAt),
		l.IsActive, l.CreatedAt)
	if err != nil {
		return mapErr("insert lock", err)
	}
	id, err := lastInsertID(res)
	if err != nil {
		return mapErr("insert lock", err)
	}
	l.ID = id
	return nil
}

// ReleaseLock flips an active lock to inactive.  by is nil when the reaper
// releases an expired lock.  Releasing a lock that is no longer active is a
// Conflict, which lets a manual cancel and the reaper race safely.
func (r *LockRepo) ReleaseLock(ctx context.Context, id uint64, by *uint64, at time.Time) error {
	res, err := q(ctx, r.db).ExecContext(ctx,
		`UPDATE locks SET is_active = 0, cancelled_by = ?, cancelled_at = ? WHERE id = ? AND is_active = 1`,
		arg(by), at, id)
	if err != nil {
		return mapErr("release lock", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapErr("release lock", err)
	}
	if n == 0 {
		return apperr.Conflict("lock_inactive", "lock is no longer active").On("lock", id)
	}
	return nil
}

// ListActiveLocks returns the locks of eventID still in force at now.
func (r *LockRepo) ListActiveLocks(ctx context.Context, eventID uint64, now time.Time) ([]model.Lock, error) {
	return r.list(ctx, "list active locks",
		`SELECT `+lockColumns+` FROM locks
		 WHERE event_id = ? AND is_active = 1
		   AND (temporary = 0 OR expires_at IS NULL OR expires_at >= ?)
		 ORDER BY created_at, id`, eventID, now)
}

// ExpiredLocks returns up to limit temporary locks still flagged active whose
// expiry lies before now, oldest first.
func (r *LockRepo) ExpiredLocks(ctx context.Context, now time.Time, limit int) ([]model.Lock, error) {
	return r.list(ctx, "list expired locks",
		`SELECT `+lockColumns+` FROM locks
		 WHERE is_active = 1 AND temporary = 1 AND expires_at IS NOT NULL AND expires_at < ?
		 ORDER BY expires_at, id LIMIT ?`, now, limit)
}

// lockTargets maps a lock kind to the table holding its entities.
var lockTargets = map[model.LockKind]string{
	model.LockClient: "clients",
	model.LockTable:  "venue_tables",
	model.LockTab:    "tabs",
	model.LockArea:   "areas",
}

// EntityExists reports whether the entity a lock would reference exists.
func (r *LockRepo) EntityExists(ctx context.Context, kind model.LockKind, refID uint64) (bool, error) {
	table, ok := lockTargets[kind]
	if !ok {
		return false, apperr.Validation("invalid_lock_kind", "unknown lock kind: "+string(kind))
	}
	return exists(ctx, r.db, "check lock target",
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = ?)`, refID)
}

// AreaEventID returns the venue-event whose layout holds areaID.
func (r *LockRepo) AreaEventID(ctx context.Context, areaID uint64) (uint64, error) {
	var eventID uint64
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT l.event_id FROM areas a JOIN layouts l ON l.id = a.layout_id WHERE a.id = ?`, areaID).Scan(&eventID)
	if err != nil {
		return 0, notFoundOr(err, "area", areaID, "get area event")
	}
	return eventID, nil
}
