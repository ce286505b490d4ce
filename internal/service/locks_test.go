package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-operations/internal/apperr"
	"github.com/iliyamo/venue-operations/internal/model"
	"github.com/iliyamo/venue-operations/internal/notify"
)

func tableLock(v *venue, tableID uint64) CreateLockInput {
	return CreateLockInput{Kind: model.LockTable, RefID: tableID, EventID: v.eventID, Reason: "spill", ActorID: 9}
}

func TestCreateLockBlocksTable(t *testing.T) {
	t.Parallel()

	v := seedVenue(t)
	m := NewLockManager(v.store, newStepClock())
	ctx := context.Background()

	lock, fx, err := m.CreateLock(ctx, tableLock(v, v.t1.ID))
	require.NoError(t, err)
	assert.True(t, lock.IsActive)
	assert.NotZero(t, lock.ID)
	assert.Equal(t, model.TableBlocked, v.store.table(v.t1.ID).Status)
	assert.Equal(t, []string{notify.TableUpdated, notify.EntityLocked}, eventNames(fx))
	assert.Equal(t, []uint64{1}, fx.InvalidateEvents)
	assert.Equal(t, lock.ID, fx.Events[1].Payload.(notify.LockPayload).Lock.ID)

	_, fx, err = m.CreateLock(ctx, tableLock(v, v.t1.ID))
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
	assert.Equal(t, "entity already locked", err.Error())
	assert.True(t, fx.Empty())
}

func TestCreateLockStorageArbiter(t *testing.T) {
	t.Parallel()

	v := seedVenue(t)
	m := NewLockManager(v.store, newStepClock())
	ctx := context.Background()
	_, _, err := m.CreateLock(ctx, tableLock(v, v.t2.ID))
	require.NoError(t, err)

	v.store.racy = true
	_, _, err = m.CreateLock(ctx, tableLock(v, v.t2.ID))
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.CodeEntityLocked, ae.Code)
	assert.Equal(t, "table", ae.Entity)
	assert.Equal(t, v.t2.ID, ae.EntityID)
}

func TestLockTabCascadesAndRestores(t *testing.T) {
	t.Parallel()

	v := seedVenue(t)
	clk := newStepClock()
	l := NewLifecycle(v.store, clk)
	m := NewLockManager(v.store, clk)
	ctx := context.Background()

	tab, _, err := l.OpenTab(ctx, OpenTabInput{EventID: 1, Number: "11", TableID: &v.t1.ID, ActorID: 9})
	require.NoError(t, err)

	lock, _, err := m.CreateLock(ctx, CreateLockInput{Kind: model.LockTab, RefID: tab.ID, EventID: 1, Reason: "unpaid", ActorID: 9})
	require.NoError(t, err)
	assert.Equal(t, model.TabBlocked, v.store.tab(tab.ID).Status)

	_, _, err = l.CloseTab(ctx, tab.ID, 9)
	assert.Equal(t, "tab_blocked", apperr.CodeOf(err))
	_, _, err = l.OpenTab(ctx, OpenTabInput{EventID: 1, Number: "12", TableID: &v.t1.ID, ActorID: 9})
	assert.Equal(t, apperr.CodeTableHasActiveTab, apperr.CodeOf(err), "a blocked tab still holds its table")

	cancelled, fx, err := m.CancelLock(ctx, lock.ID, 4)
	require.NoError(t, err)
	assert.False(t, cancelled.IsActive)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, uint64(4), *cancelled.CancelledBy)
	assert.Equal(t, model.TabOpen, v.store.tab(tab.ID).Status)
	assert.Equal(t, []string{notify.EntityUnlocked}, eventNames(fx))
	assert.Equal(t, []uint64{1}, fx.InvalidateEvents)

	_, _, err = m.CancelLock(ctx, lock.ID, 4)
	assert.Equal(t, "lock_inactive", apperr.CodeOf(err))
}

func TestCancelTableLockRestoresOccupancy(t *testing.T) {
	t.Parallel()

	v := seedVenue(t)
	clk := newStepClock()
	l := NewLifecycle(v.store, clk)
	m := NewLockManager(v.store, clk)
	ctx := context.Background()

	free, _, err := m.CreateLock(ctx, tableLock(v, v.t2.ID))
	require.NoError(t, err)
	_, _, err = l.OpenTab(ctx, OpenTabInput{EventID: 1, Number: "20", TableID: &v.t1.ID, ActorID: 9})
	require.NoError(t, err)
	busy, _, err := m.CreateLock(ctx, tableLock(v, v.t1.ID))
	require.NoError(t, err)
	assert.Equal(t, model.TableBlocked, v.store.table(v.t1.ID).Status)

	_, fx, err := m.CancelLock(ctx, free.ID, 9)
	require.NoError(t, err)
	assert.Equal(t, model.TableAvailable, v.store.table(v.t2.ID).Status)
	assert.Equal(t, []string{notify.TableUpdated, notify.EntityUnlocked}, eventNames(fx))

	_, _, err = m.CancelLock(ctx, busy.ID, 9)
	require.NoError(t, err)
	assert.Equal(t, model.TableOccupied, v.store.table(v.t1.ID).Status)
}

func TestClientAndAreaLocks(t *testing.T) {
	t.Parallel()

	v := seedVenue(t)
	m := NewLockManager(v.store, newStepClock())
	ctx := context.Background()
	client := v.store.addClient("Ana", "12345678900")

	_, fx, err := m.CreateLock(ctx, CreateLockInput{Kind: model.LockClient, RefID: client.ID, EventID: 1, Reason: "banned", ActorID: 9})
	require.NoError(t, err)
	assert.Equal(t, []string{notify.EntityLocked}, eventNames(fx), "nothing to cascade")

	_, _, err = m.CreateLock(ctx, CreateLockInput{Kind: model.LockArea, RefID: v.bar.ID, EventID: 1, Reason: "closed", ActorID: 9})
	require.NoError(t, err)

	_, _, err = m.CreateLock(ctx, CreateLockInput{Kind: model.LockClient, RefID: 4242, EventID: 1, Reason: "x", ActorID: 9})
	assert.True(t, apperr.IsNotFound(err))

	_, _, err = m.CreateLock(ctx, CreateLockInput{Kind: model.LockTable, RefID: v.other.ID, EventID: 1, Reason: "x", ActorID: 9})
	assert.Equal(t, "event_mismatch", apperr.CodeOf(err))
}

func TestAreaLockMustBelongToEvent(t *testing.T) {
	t.Parallel()

	v := seedVenue(t)
	m := NewLockManager(v.store, newStepClock())
	ctx := context.Background()

	_, _, err := m.CreateLock(ctx, CreateLockInput{Kind: model.LockArea, RefID: v.other.AreaID, EventID: 1, Reason: "closed", ActorID: 9})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Equal(t, "event_mismatch", apperr.CodeOf(err))

	_, _, err = m.CreateLock(ctx, CreateLockInput{Kind: model.LockArea, RefID: 4242, EventID: 1, Reason: "closed", ActorID: 9})
	assert.True(t, apperr.IsNotFound(err))

	locks, err := m.ListActiveLocks(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, locks, "nothing stored for the foreign area")

	l, _, err := m.CreateLock(ctx, CreateLockInput{Kind: model.LockArea, RefID: v.other.AreaID, EventID: 2, Reason: "closed", ActorID: 9})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), l.EventID)
}

func TestCreateLockValidation(t *testing.T) {
	t.Parallel()

	v := seedVenue(t)
	m := NewLockManager(v.store, newStepClock())
	ctx := context.Background()
	past := baseTime.Add(-time.Minute)
	future := baseTime.Add(time.Hour)

	cases := []CreateLockInput{
		{Kind: "bench", RefID: v.t1.ID, EventID: 1, Reason: "x"},
		{Kind: model.LockTable, EventID: 1, Reason: "x"},
		{Kind: model.LockTable, RefID: v.t1.ID, Reason: "x"},
		{Kind: model.LockTable, RefID: v.t1.ID, EventID: 1, Reason: "  "},
		{Kind: model.LockTable, RefID: v.t1.ID, EventID: 1, Reason: "x", Temporary: true, ExpiresAt: &past},
		{Kind: model.LockTable, RefID: v.t1.ID, EventID: 1, Reason: "x", ExpiresAt: &future},
	}
	for i, in := range cases {
		_, _, err := m.CreateLock(ctx, in)
		assert.True(t, apperr.IsValidation(err), "case %d: %v", i, err)
	}
}

func TestExpiredLockNoLongerHolds(t *testing.T) {
	t.Parallel()

	v := seedVenue(t)
	clk := newStepClock()
	m := NewLockManager(v.store, clk)
	ctx := context.Background()

	exp := baseTime.Add(10 * time.Minute)
	in := tableLock(v, v.t1.ID)
	in.Temporary = true
	in.ExpiresAt = &exp
	first, _, err := m.CreateLock(ctx, in)
	require.NoError(t, err)

	locks, err := m.ListActiveLocks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, locks, 1)

	clk.Advance(11 * time.Minute)
	locks, err = m.ListActiveLocks(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, locks)

	// The expired row is still flagged active until reaped; a new lock
	// supersedes it instead of conflicting.
	second, fx, err := m.CreateLock(ctx, tableLock(v, v.t1.ID))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, v.store.lock(first.ID).IsActive)
	assert.Equal(t, []string{notify.EntityUnlocked, notify.EntityLocked}, eventNames(fx))
	assert.Equal(t, model.TableBlocked, v.store.table(v.t1.ID).Status)
}

func TestReapExpired(t *testing.T) {
	t.Parallel()

	v := seedVenue(t)
	clk := newStepClock()
	m := NewLockManager(v.store, clk)
	ctx := context.Background()

	soon := baseTime.Add(5 * time.Minute)
	later := baseTime.Add(time.Hour)
	for _, tc := range []struct {
		table uint64
		exp   *time.Time
	}{{v.t1.ID, &soon}, {v.t2.ID, &later}, {v.t3.ID, nil}} {
		in := tableLock(v, tc.table)
		in.Temporary = tc.exp != nil
		in.ExpiresAt = tc.exp
		_, _, err := m.CreateLock(ctx, in)
		require.NoError(t, err)
	}

	n, fx, err := m.ReapExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, fx.Empty())

	clk.Advance(6 * time.Minute)
	n, fx, err = m.ReapExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{notify.TableUpdated, notify.EntityUnlocked}, eventNames(fx))
	assert.Equal(t, model.TableAvailable, v.store.table(v.t1.ID).Status)
	assert.Equal(t, model.TableBlocked, v.store.table(v.t2.ID).Status)
	assert.Equal(t, uint64(0), fx.Events[1].ActorID, "system release")

	clk.Advance(24 * time.Hour)
	n, _, err = m.ReapExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "permanent locks never expire")
	assert.Equal(t, model.TableBlocked, v.store.table(v.t3.ID).Status)
}

func TestReapExpiredStopsOnStorageError(t *testing.T) {
	t.Parallel()

	v := seedVenue(t)
	clk := newStepClock()
	m := NewLockManager(v.store, clk)
	exp := baseTime.Add(time.Minute)
	in := tableLock(v, v.t1.ID)
	in.Temporary, in.ExpiresAt = true, &exp
	_, _, err := m.CreateLock(context.Background(), in)
	require.NoError(t, err)

	clk.Advance(time.Hour)
	v.store.fail["ReleaseLock"] = apperr.Storage("release lock", errStorage)
	n, fx, err := m.ReapExpired(context.Background())
	assert.True(t, apperr.IsStorage(err))
	assert.Zero(t, n)
	assert.True(t, fx.Empty())
	assert.Equal(t, model.TableBlocked, v.store.table(v.t1.ID).Status)
}
