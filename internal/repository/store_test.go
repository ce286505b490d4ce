package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/venue-operations/internal/service"
)

var _ service.Store = (*Store)(nil)

func TestQuerierPrefersContextTx(t *testing.T) {
	t.Parallel()

	db := &sql.DB{}
	assert.Same(t, db, q(context.Background(), db))

	tx := &sql.Tx{}
	ctx := context.WithValue(context.Background(), txKey{}, tx)
	assert.Same(t, tx, q(ctx, db))
}

func TestNullHelpers(t *testing.T) {
	t.Parallel()

	assert.Nil(t, nullPtr(sql.Null[uint64]{}))
	assert.Equal(t, uint64(7), *nullPtr(sql.Null[uint64]{V: 7, Valid: true}))

	assert.Nil(t, arg[string](nil))
	s := "note"
	assert.Equal(t, "note", arg(&s))
}
