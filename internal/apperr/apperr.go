// Package apperr defines the error taxonomy shared by the repository, service
// and handler layers.  Every failure that leaves the engine is an *Error with
// one of four kinds so that callers can decide whether to retry, re-decide or
// surface the problem to staff.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for handling purposes.
type Kind int

const (
	// KindStorage is a transient I/O fault against the store or the cache.
	// Callers may retry with backoff; the engine itself never retries.
	KindStorage Kind = iota
	// KindValidation is malformed input.  Not retried.
	KindValidation
	// KindConflict is an invariant violation (duplicate number, entity
	// already locked or occupied).  Not retried.
	KindConflict
	// KindNotFound means a referenced entity is absent.
	KindNotFound
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindStorage:
		return "storage"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error carries the kind, a stable machine code, a human message and, when
// known, the entity the failure is about.
type Error struct {
	Kind     Kind
	Code     string
	Message  string
	Entity   string
	EntityID uint64
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// On attaches the entity reference to the error and returns it.
func (e *Error) On(entity string, id uint64) *Error {
	e.Entity = entity
	e.EntityID = id
	return e
}

// Validation builds a KindValidation error.
func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// Conflict builds a KindConflict error.
func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// NotFound builds a KindNotFound error.
func NotFound(entity string, id uint64) *Error {
	return &Error{Kind: KindNotFound, Code: entity + "_not_found", Message: entity + " not found", Entity: entity, EntityID: id}
}

// Storage wraps an I/O failure.  op names the failed operation.
func Storage(op string, err error) *Error {
	return &Error{Kind: KindStorage, Code: "storage_error", Message: op, Err: err}
}

// KindOf reports the kind of err.  Errors that are not *Error are treated as
// storage faults: the engine never lets an unclassified error look like a
// caller mistake.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// CodeOf returns the machine code of err, or "internal" for unclassified errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}

func IsConflict(err error) bool   { return err != nil && KindOf(err) == KindConflict }
func IsNotFound(err error) bool   { return err != nil && KindOf(err) == KindNotFound }
func IsValidation(err error) bool { return err != nil && KindOf(err) == KindValidation }
func IsStorage(err error) bool    { return err != nil && KindOf(err) == KindStorage }
