package model

import "time"

// LockKind names the entity family a lock refers to.
type LockKind string

const (
	LockClient LockKind = "client"
	LockTable  LockKind = "table"
	LockTab    LockKind = "tab"
	LockArea   LockKind = "area"
)

// Valid reports whether k is a lockable entity kind.
func (k LockKind) Valid() bool {
	switch k {
	case LockClient, LockTable, LockTab, LockArea:
		return true
	}
	return false
}

// Lock is a temporary or permanent hold on one entity.  At most
// one active lock exists per (Kind, RefID).
//
// Fields:
//  ID          – primary key identifier.
//  EventID     – venue-event whose caches the lock affects.
//  Kind        – entity family (client, table, tab, area).
//  RefID       – identifier of the locked entity.
//  Reason      – short reason code chosen by staff.
//  Detail      – optional free text.
//  CreatedBy   – staff member who created the lock.
//  Temporary   – whether the lock expires.
//  ExpiresAt   – expiry instant for temporary locks.
//  IsActive    – false once cancelled or reaped.
//  CancelledBy – staff member (0 for the reaper) who released the lock.
type Lock struct {
	ID          uint64     `json:"id"`                     // locks.id
	EventID     uint64     `json:"event_id"`               // locks.event_id
	Kind        LockKind   `json:"kind"`                   // locks.kind
	RefID       uint64     `json:"ref_id"`                 // locks.ref_id
	Reason      string     `json:"reason"`                 // locks.reason
	Detail      *string    `json:"detail,omitempty"`       // locks.detail (nullable)
	CreatedBy   uint64     `json:"created_by"`             // locks.created_by
	Temporary   bool       `json:"temporary"`              // locks.temporary
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`   // locks.expires_at (nullable)
	IsActive    bool       `json:"is_active"`              // locks.is_active
	CancelledBy *uint64    `json:"cancelled_by,omitempty"` // locks.cancelled_by (nullable)
	CreatedAt   time.Time  `json:"created_at"`             // locks.created_at
}

// Effective reports whether the lock still holds at now.  A temporary lock
// past its expiry is treated as inactive even before the reaper flips it.
func (l Lock) Effective(now time.Time) bool {
	if !l.IsActive {
		return false
	}
	if l.Temporary && l.ExpiresAt != nil && now.After(*l.ExpiresAt) {
		return false
	}
	return true
}
