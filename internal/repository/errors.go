// Package repository is the MySQL persistence gateway.  It executes
// parameterized queries and translates driver failures into the apperr
// taxonomy: a missing row becomes NotFound, a unique-key violation becomes a
// Conflict and anything else is a retry-safe Storage error.  The unique keys
// are the final arbiters of the check-then-insert races the service layer
// accepts.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/venue-operations/internal/apperr"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// conflictByKey names the invariant behind each unique key so that the
// storage arbiter reports the same conflict as the service pre-check.
var conflictByKey = map[string]func() *apperr.Error{
	"uq_tabs_active_table":  func() *apperr.Error { return apperr.TableHasActiveTab(0) },
	"uq_tabs_event_number":  apperr.TabNumberTaken,
	"uq_cards_event_number": apperr.CardNumberTaken,
	"uq_locks_active_ref":   func() *apperr.Error { return apperr.EntityLocked("", 0) },
}

// mapErr classifies err.  Errors already classified pass through untouched.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		for key, build := range conflictByKey {
			if strings.Contains(me.Message, key) {
				e := build()
				e.Err = err
				return e
			}
		}
		e := apperr.Conflict(apperr.CodeDuplicate, "duplicate entry")
		e.Err = err
		return e
	}
	return apperr.Storage(op, err)
}

// notFoundOr maps sql.ErrNoRows to NotFound for entity/id and everything else
// through mapErr.
func notFoundOr(err error, entity string, id uint64, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(entity, id)
	}
	return mapErr(op, err)
}
