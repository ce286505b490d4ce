package service

import (
	"context"
	"time"

	"github.com/iliyamo/venue-operations/internal/model"
)

// Store is everything the engine needs from the persistence gateway.  The
// MySQL implementation lives in the repository package; tests use an
// in-memory fake.
type Store interface {
	// WithTx runs fn in one transaction.  Calls made with the ctx passed to
	// fn join it; nested WithTx calls reuse the outer transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	LayoutStore
	TableStore
	TabStore
	CardStore
	LockStore
	StatsStore
	SearchStore
}

// LayoutStore reads the Layout -> Area -> Table tree.
type LayoutStore interface {
	// GetLayoutByEvent returns a NotFound error when the event has no layout.
	GetLayoutByEvent(ctx context.Context, eventID uint64) (*model.Layout, error)
	CreateLayout(ctx context.Context, l *model.Layout) error
	ListAreas(ctx context.Context, layoutID uint64, f model.LayoutFilter) ([]model.Area, error)
	ListTables(ctx context.Context, layoutID uint64, f model.LayoutFilter) ([]model.Table, error)
	// ActiveTabSummaries maps table id to the open or blocked tab on it.
	ActiveTabSummaries(ctx context.Context, eventID uint64) (map[uint64]model.TabSummary, error)
	ListGroupCards(ctx context.Context, eventID, groupID uint64) ([]model.CardSummary, error)
}

// TableStore reads and updates tables.  GetTable resolves EventID through
// the area and layout chain.
type TableStore interface {
	GetTable(ctx context.Context, id uint64) (*model.Table, error)
	// GetTableForUpdate is GetTable with a row lock; only meaningful inside
	// WithTx.
	GetTableForUpdate(ctx context.Context, id uint64) (*model.Table, error)
	UpdateTableStatus(ctx context.Context, id uint64, status model.TableStatus, notes *string) error
}

// TabStore reads and writes tabs and their participants.
type TabStore interface {
	GetTab(ctx context.Context, id uint64) (*model.Tab, error)
	HasActiveTab(ctx context.Context, tableID uint64) (bool, error)
	TabNumberExists(ctx context.Context, eventID uint64, number string) (bool, error)
	InsertTab(ctx context.Context, t *model.Tab) error
	UpdateTabStatus(ctx context.Context, id uint64, status model.TabStatus, closedAt *time.Time) error

	GetParticipant(ctx context.Context, id uint64) (*model.Participant, error)
	InsertParticipant(ctx context.Context, p *model.Participant) error
	DeactivateParticipant(ctx context.Context, id uint64, at time.Time) error
}

// CardStore writes prepaid cards.
type CardStore interface {
	CardNumberExists(ctx context.Context, eventID uint64, number string) (bool, error)
	InsertCard(ctx context.Context, c *model.Card) error
}

// LockStore reads and writes locks.
type LockStore interface {
	GetLock(ctx context.Context, id uint64) (*model.Lock, error)
	// ActiveLockFor returns the row flagged active for (kind, refID), expired
	// or not, or a NotFound error.
	ActiveLockFor(ctx context.Context, kind model.LockKind, refID uint64) (*model.Lock, error)
	InsertLock(ctx context.Context, l *model.Lock) error
	ReleaseLock(ctx context.Context, id uint64, by *uint64, at time.Time) error
	// ListActiveLocks returns the locks of eventID still in force at now.
	ListActiveLocks(ctx context.Context, eventID uint64, now time.Time) ([]model.Lock, error)
	// ExpiredLocks returns up to limit temporary locks flagged active whose
	// expiry is before now.
	ExpiredLocks(ctx context.Context, now time.Time, limit int) ([]model.Lock, error)
	// EntityExists reports whether the lock target exists.
	EntityExists(ctx context.Context, kind model.LockKind, refID uint64) (bool, error)
	// AreaEventID returns the venue-event owning the area's layout, or a
	// NotFound error.
	AreaEventID(ctx context.Context, areaID uint64) (uint64, error)
}

// StatsStore returns the raw counters the statistics aggregator combines.
type StatsStore interface {
	CountTablesByStatus(ctx context.Context, eventID uint64) (map[model.TableStatus]int, error)
	TabTotals(ctx context.Context, eventID uint64) (model.TabTotals, error)
}

// SearchStore runs one substring lookup per entity family.
type SearchStore interface {
	SearchClients(ctx context.Context, taxID string, limit int) ([]model.SearchHit, error)
	SearchTables(ctx context.Context, eventID uint64, text string, limit int) ([]model.SearchHit, error)
	SearchTabs(ctx context.Context, eventID uint64, text string, limit int) ([]model.SearchHit, error)
	SearchCards(ctx context.Context, eventID uint64, text string, limit int) ([]model.SearchHit, error)
}
