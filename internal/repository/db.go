package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Store is the MySQL persistence gateway.  It bundles one repo per table
// family and adds transaction scoping; it carries no business logic.
type Store struct {
	db *sql.DB
	*LayoutRepo
	*TableRepo
	*TabRepo
	*CardRepo
	*LockRepo
	*StatsRepo
	*SearchRepo
}

// NewStore returns a Store bound to db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:         db,
		LayoutRepo: NewLayoutRepo(db),
		TableRepo:  NewTableRepo(db),
		TabRepo:    NewTabRepo(db),
		CardRepo:   NewCardRepo(db),
		LockRepo:   NewLockRepo(db),
		StatsRepo:  NewStatsRepo(db),
		SearchRepo: NewSearchRepo(db),
	}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

type txKey struct{}

// WithTx runs fn inside a transaction carried by the context.  Every repo
// call made with that context joins the transaction.  A nested call reuses
// the outer transaction and leaves commit to it.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapErr("begin tx", err)
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapErr("commit tx", err)
	}
	return nil
}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q picks the transaction in ctx, if any, over the pool.
func q(ctx context.Context, db *sql.DB) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

func lastInsertID(res sql.Result) (uint64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("unexpected insert id %d", id)
	}
	return uint64(id), nil
}

func exists(ctx context.Context, db *sql.DB, op, query string, args ...any) (bool, error) {
	var ok bool
	if err := q(ctx, db).QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, mapErr(op, err)
	}
	return ok, nil
}

func nullPtr[T any](n sql.Null[T]) *T {
	if !n.Valid {
		return nil
	}
	v := n.V
	return &v
}

// arg turns an optional value into a driver argument, nil becoming NULL.
func arg[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
