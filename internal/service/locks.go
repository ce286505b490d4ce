package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/venue-operations/internal/apperr"
	"github.com/iliyamo/venue-operations/internal/clock"
	"github.com/iliyamo/venue-operations/internal/model"
	"github.com/iliyamo/venue-operations/internal/notify"
)

const (
	maxReasonLen  = 60
	reapBatchSize = 100
)

// LockManager creates and releases locks and cascades them onto the status
// of the locked table or tab.  A temporary lock past its expiry no longer
// holds, whether or not the reaper has flipped its row yet.
type LockManager struct {
	store Store
	clock clock.Clock
}

// NewLockManager returns a lock manager backed by store.
func NewLockManager(store Store, clk clock.Clock) *LockManager {
	return &LockManager{store: store, clock: clk}
}

// CreateLockInput describes a new lock.
type CreateLockInput struct {
	Kind      model.LockKind
	RefID     uint64
	EventID   uint64
	Reason    string
	Detail    *string
	ActorID   uint64
	Temporary bool
	ExpiresAt *time.Time
}

func (in *CreateLockInput) validate(now time.Time) error {
	if !in.Kind.Valid() {
		return apperr.Validation("invalid_lock_kind", "unknown lock kind: "+string(in.Kind))
	}
	if in.RefID == 0 {
		return apperr.Validation("invalid_ref", "referenced id is required")
	}
	if in.EventID == 0 {
		return apperr.Validation("invalid_event", "event id is required")
	}
	in.Reason = strings.TrimSpace(in.Reason)
	if in.Reason == "" || len(in.Reason) > maxReasonLen {
		return apperr.Validation("invalid_reason", "reason is required and at most 60 characters")
	}
	if in.ExpiresAt != nil {
		if !in.Temporary {
			return apperr.Validation("invalid_expiry", "only temporary locks expire")
		}
		if !in.ExpiresAt.After(now) {
			return apperr.Validation("invalid_expiry", "expiry must be in the future")
		}
		t := in.ExpiresAt.UTC()
		in.ExpiresAt = &t
	}
	return nil
}

// CreateLock locks one entity.  At most one lock may hold per (kind, ref);
// an expired row still flagged active is released first.
func (m *LockManager) CreateLock(ctx context.Context, in CreateLockInput) (*model.Lock, Effects, error) {
	var fx Effects
	now := m.clock.Now()
	if err := in.validate(now); err != nil {
		return nil, fx, err
	}

	lock := &model.Lock{
		EventID:   in.EventID,
		Kind:      in.Kind,
		RefID:     in.RefID,
		Reason:    in.Reason,
		Detail:    in.Detail,
		CreatedBy: in.ActorID,
		Temporary: in.Temporary,
		ExpiresAt: in.ExpiresAt,
		IsActive:  true,
		CreatedAt: now,
	}

	var txFx Effects
	err := m.store.WithTx(ctx, func(ctx context.Context) error {
		txFx = Effects{}
		if err := m.checkTarget(ctx, in); err != nil {
			return err
		}

		prev, err := m.store.ActiveLockFor(ctx, in.Kind, in.RefID)
		switch {
		case err == nil && prev.Effective(now):
			return apperr.EntityLocked(string(in.Kind), in.RefID)
		case err == nil:
			if err := m.store.ReleaseLock(ctx, prev.ID, nil, now); err != nil {
				return err
			}
			prev.IsActive = false
			txFx.emit(newEvent(notify.EntityUnlocked, prev.EventID, 0, now, notify.LockPayload{Lock: *prev}))
			txFx.invalidate(prev.EventID)
		case !apperr.IsNotFound(err):
			return err
		}

		if err := m.store.InsertLock(ctx, lock); err != nil {
			if apperr.CodeOf(err) == apperr.CodeEntityLocked {
				return apperr.EntityLocked(string(in.Kind), in.RefID)
			}
			return err
		}
		return m.cascade(ctx, lock, in.ActorID, now, &txFx)
	})
	if err != nil {
		return nil, fx, err
	}

	fx.merge(txFx)
	fx.emit(newEvent(notify.EntityLocked, lock.EventID, in.ActorID, now, notify.LockPayload{Lock: *lock, ActorID: in.ActorID}))
	fx.invalidate(lock.EventID)
	return lock, fx, nil
}

// checkTarget verifies the entity exists and, for tables and tabs, belongs
// to the lock's venue-event.
func (m *LockManager) checkTarget(ctx context.Context, in CreateLockInput) error {
	switch in.Kind {
	case model.LockTable:
		t, err := m.store.GetTableForUpdate(ctx, in.RefID)
		if err != nil {
			return err
		}
		if t.EventID != in.EventID {
			return apperr.Validation("event_mismatch", "table belongs to another event").On("table", t.ID)
		}
	case model.LockTab:
		t, err := m.store.GetTab(ctx, in.RefID)
		if err != nil {
			return err
		}
		if t.EventID != in.EventID {
			return apperr.Validation("event_mismatch", "tab belongs to another event").On("tab", t.ID)
		}
	case model.LockArea:
		eventID, err := m.store.AreaEventID(ctx, in.RefID)
		if err != nil {
			return err
		}
		if eventID != in.EventID {
			return apperr.Validation("event_mismatch", "area belongs to another event").On("area", in.RefID)
		}
	default:
		ok, err := m.store.EntityExists(ctx, in.Kind, in.RefID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound(string(in.Kind), in.RefID)
		}
	}
	return nil
}

// cascade flips the locked table or tab to blocked.  Client and area locks
// have no status to flip.  A closed tab stays closed.
func (m *LockManager) cascade(ctx context.Context, l *model.Lock, actorID uint64, now time.Time, fx *Effects) error {
	switch l.Kind {
	case model.LockTable:
		t, err := m.store.GetTableForUpdate(ctx, l.RefID)
		if err != nil {
			return err
		}
		if t.Status == model.TableBlocked {
			return nil
		}
		if err := m.store.UpdateTableStatus(ctx, t.ID, model.TableBlocked, nil); err != nil {
			return err
		}
		t.Status = model.TableBlocked
		t.UpdatedAt = now
		fx.emit(tableUpdated(t, actorID, now))
	case model.LockTab:
		t, err := m.store.GetTab(ctx, l.RefID)
		if err != nil {
			return err
		}
		if t.Status != model.TabOpen {
			return nil
		}
		if err := m.store.UpdateTabStatus(ctx, t.ID, model.TabBlocked, nil); err != nil {
			return err
		}
	}
	return nil
}

// restore undoes the cascade once the lock is gone: a blocked table returns
// to occupied when it still carries an active tab and to available
// otherwise; a blocked tab reopens.
func (m *LockManager) restore(ctx context.Context, l *model.Lock, actorID uint64, now time.Time, fx *Effects) error {
	switch l.Kind {
	case model.LockTable:
		t, err := m.store.GetTableForUpdate(ctx, l.RefID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return nil
			}
			return err
		}
		if t.Status != model.TableBlocked {
			return nil
		}
		busy, err := m.store.HasActiveTab(ctx, t.ID)
		if err != nil {
			return err
		}
		next := model.TableAvailable
		if busy {
			next = model.TableOccupied
		}
		if err := m.store.UpdateTableStatus(ctx, t.ID, next, nil); err != nil {
			return err
		}
		t.Status = next
		t.UpdatedAt = now
		fx.emit(tableUpdated(t, actorID, now))
	case model.LockTab:
		t, err := m.store.GetTab(ctx, l.RefID)
		if err != nil {
			if apperr.IsNotFound(err) {
				return nil
			}
			return err
		}
		if t.Status != model.TabBlocked {
			return nil
		}
		if err := m.store.UpdateTabStatus(ctx, t.ID, model.TabOpen, nil); err != nil {
			return err
		}
	}
	return nil
}

// release flips one lock inactive and restores the cascaded status.  by is
// nil for the reaper.
func (m *LockManager) release(ctx context.Context, l *model.Lock, by *uint64, now time.Time) (Effects, error) {
	var fx Effects
	err := m.store.WithTx(ctx, func(ctx context.Context) error {
		fx = Effects{}
		if err := m.store.ReleaseLock(ctx, l.ID, by, now); err != nil {
			return err
		}
		var actor uint64
		if by != nil {
			actor = *by
		}
		return m.restore(ctx, l, actor, now, &fx)
	})
	if err != nil {
		return Effects{}, err
	}

	l.IsActive = false
	l.CancelledBy = by
	var actor uint64
	if by != nil {
		actor = *by
	}
	fx.emit(newEvent(notify.EntityUnlocked, l.EventID, actor, now, notify.LockPayload{Lock: *l, ActorID: actor}))
	fx.invalidate(l.EventID)
	return fx, nil
}

// CancelLock releases a lock by staff decision.
func (m *LockManager) CancelLock(ctx context.Context, lockID, actorID uint64) (*model.Lock, Effects, error) {
	if lockID == 0 {
		return nil, Effects{}, apperr.Validation("invalid_lock", "lock id is required")
	}
	l, err := m.store.GetLock(ctx, lockID)
	if err != nil {
		return nil, Effects{}, err
	}
	if !l.IsActive {
		return nil, Effects{}, apperr.Conflict("lock_inactive", "lock is no longer active").On("lock", l.ID)
	}
	fx, err := m.release(ctx, l, &actorID, m.clock.Now())
	if err != nil {
		return nil, Effects{}, err
	}
	return l, fx, nil
}

// ListActiveLocks returns the locks of eventID still in force.
func (m *LockManager) ListActiveLocks(ctx context.Context, eventID uint64) ([]model.Lock, error) {
	if eventID == 0 {
		return nil, apperr.Validation("invalid_event", "event id is required")
	}
	locks, err := m.store.ListActiveLocks(ctx, eventID, m.clock.Now())
	if err != nil {
		return nil, err
	}
	if locks == nil {
		locks = []model.Lock{}
	}
	return locks, nil
}

// ReapExpired releases every temporary lock whose expiry has passed.  A lock
// released concurrently by staff is skipped.  It returns the locks released
// and the combined effects; a storage error stops the sweep but keeps what
// was already released.
func (m *LockManager) ReapExpired(ctx context.Context) (int, Effects, error) {
	var fx Effects
	now := m.clock.Now()
	reaped := 0
	for {
		expired, err := m.store.ExpiredLocks(ctx, now, reapBatchSize)
		if err != nil {
			return reaped, fx, err
		}
		released := 0
		for i := range expired {
			lfx, err := m.release(ctx, &expired[i], nil, now)
			if err != nil {
				if apperr.IsConflict(err) {
					continue
				}
				return reaped, fx, err
			}
			fx.merge(lfx)
			released++
		}
		reaped += released
		if len(expired) < reapBatchSize || released == 0 {
			return reaped, fx, nil
		}
	}
}
