package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsScanKeepsUnknownKeys(t *testing.T) {
	t.Parallel()

	var s TableSettings
	err := s.Scan([]byte(`{"version":1,"rotation":90,"neon":"pink","extra":{"legacy":true}}`))
	require.NoError(t, err)

	require.NotNil(t, s.Rotation)
	assert.Equal(t, 90, *s.Rotation)
	assert.Equal(t, "pink", s.Extra["neon"])
	assert.Equal(t, true, s.Extra["legacy"])
	assert.Equal(t, 1, s.Version)
}

func TestSettingsScanNull(t *testing.T) {
	t.Parallel()

	var s AreaRestrictions
	require.NoError(t, s.Scan(nil))
	assert.Equal(t, SettingsVersion, s.Version)
	assert.Nil(t, s.MinAge)

	var c CardSettings
	assert.Error(t, c.Scan(42))
}

func TestSettingsValueStampsVersion(t *testing.T) {
	t.Parallel()

	color := "gold"
	v, err := AreaSettings{Color: &color}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"color":"gold"}`, v.(string))

	var back AreaSettings
	require.NoError(t, back.Scan(v))
	require.NotNil(t, back.Color)
	assert.Equal(t, "gold", *back.Color)
}

func TestLockEffective(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, Lock{IsActive: true}.Effective(now))
	assert.False(t, Lock{IsActive: false}.Effective(now))
	assert.True(t, Lock{IsActive: true, Temporary: true, ExpiresAt: &future}.Effective(now))
	assert.False(t, Lock{IsActive: true, Temporary: true, ExpiresAt: &past}.Effective(now))
	// a permanent lock ignores a stray expiry
	assert.True(t, Lock{IsActive: true, Temporary: false, ExpiresAt: &past}.Effective(now))
}

func TestStatusValidation(t *testing.T) {
	t.Parallel()

	assert.True(t, TableMaintenance.Valid())
	assert.False(t, TableStatus("broken").Valid())
	assert.True(t, TabOpen.Active())
	assert.True(t, TabBlocked.Active())
	assert.False(t, TabClosed.Active())
	assert.True(t, TabKindTakeAway.Valid())
	assert.False(t, LockKind("card").Valid())
	assert.True(t, SearchCard.Valid())
}

func TestStatsFinalize(t *testing.T) {
	t.Parallel()

	s := Stats{RevenueCents: 30000, TabsCounted: 4}
	s.Finalize()
	assert.InDelta(t, 7500.0, s.AverageTicket, 0.001)

	empty := Stats{}
	empty.Finalize()
	assert.Zero(t, empty.AverageTicket)
}
