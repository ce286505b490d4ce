package service

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/venue-operations/internal/apperr"
	"github.com/iliyamo/venue-operations/internal/model"
)

// fakeStore is an in-memory Store.  Transactions are serialised and roll
// back on error; unique keys are enforced at insert the way MySQL does.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID       uint64
	layouts      map[uint64]model.Layout      // by event id
	areas        map[uint64]model.Area
	tables       map[uint64]model.Table
	tabs         map[uint64]model.Tab
	participants map[uint64]model.Participant
	cards        map[uint64]model.Card
	locks        map[uint64]model.Lock
	clients      map[uint64]model.Client

	// racy makes every pre-check report "free" so that the insert-time
	// unique keys have to catch the conflict.
	racy bool
	// fail makes the named method return the error.
	fail map[string]error
}

type fakeTxKey struct{}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:       100,
		layouts:      map[uint64]model.Layout{},
		areas:        map[uint64]model.Area{},
		tables:       map[uint64]model.Table{},
		tabs:         map[uint64]model.Tab{},
		participants: map[uint64]model.Participant{},
		cards:        map[uint64]model.Card{},
		locks:        map[uint64]model.Lock{},
		clients:      map[uint64]model.Client{},
		fail:         map[string]error{},
	}
}

func (f *fakeStore) id() uint64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) failure(method string) error {
	return f.fail[method]
}

type fakeSnapshot struct {
	layouts      map[uint64]model.Layout
	areas        map[uint64]model.Area
	tables       map[uint64]model.Table
	tabs         map[uint64]model.Tab
	participants map[uint64]model.Participant
	cards        map[uint64]model.Card
	locks        map[uint64]model.Lock
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	snap := fakeSnapshot{
		layouts:      maps.Clone(f.layouts),
		areas:        maps.Clone(f.areas),
		tables:       maps.Clone(f.tables),
		tabs:         maps.Clone(f.tabs),
		participants: maps.Clone(f.participants),
		cards:        maps.Clone(f.cards),
		locks:        maps.Clone(f.locks),
	}
	f.mu.Unlock()

	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		f.mu.Lock()
		f.layouts, f.areas, f.tables, f.tabs = snap.layouts, snap.areas, snap.tables, snap.tabs
		f.participants, f.cards, f.locks = snap.participants, snap.cards, snap.locks
		f.mu.Unlock()
		return err
	}
	return nil
}

// seeding

func (f *fakeStore) addLayout(eventID uint64) model.Layout {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := model.Layout{ID: f.id(), EventID: eventID, Width: 1000, Height: 600, Scale: 1}
	f.layouts[eventID] = l
	return l
}

func (f *fakeStore) addArea(layoutID uint64, name, kind string, active bool, order int) model.Area {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := model.Area{ID: f.id(), LayoutID: layoutID, Name: name, Kind: kind, IsActive: active, SortOrder: order}
	f.areas[a.ID] = a
	return a
}

func (f *fakeStore) addTable(area model.Area, number string, status model.TableStatus) model.Table {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := model.Table{ID: f.id(), AreaID: area.ID, Number: number, Name: "Table " + number, Capacity: 4, Status: status}
	f.tables[t.ID] = t
	return t
}

func (f *fakeStore) addClient(name, taxID string) model.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := model.Client{ID: f.id(), Name: name, TaxID: taxID}
	f.clients[c.ID] = c
	return c
}

func (f *fakeStore) table(id uint64) model.Table {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tables[id]
}

func (f *fakeStore) tab(id uint64) model.Tab {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tabs[id]
}

func (f *fakeStore) lock(id uint64) model.Lock {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locks[id]
}

// eventOfTableLocked resolves the venue-event through area and layout.
func (f *fakeStore) eventOfTableLocked(t model.Table) uint64 {
	a, ok := f.areas[t.AreaID]
	if !ok {
		return 0
	}
	for _, l := range f.layouts {
		if l.ID == a.LayoutID {
			return l.EventID
		}
	}
	return 0
}

// LayoutStore

func (f *fakeStore) GetLayoutByEvent(_ context.Context, eventID uint64) (*model.Layout, error) {
	if err := f.failure("GetLayoutByEvent"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.layouts[eventID]
	if !ok {
		return nil, apperr.NotFound("layout", eventID)
	}
	return &l, nil
}

func (f *fakeStore) CreateLayout(_ context.Context, l *model.Layout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.layouts[l.EventID]; ok {
		return apperr.Conflict(apperr.CodeDuplicate, "duplicate entry")
	}
	l.ID = f.id()
	f.layouts[l.EventID] = *l
	return nil
}

func (f *fakeStore) ListAreas(_ context.Context, layoutID uint64, flt model.LayoutFilter) ([]model.Area, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Area
	for _, a := range f.areas {
		if a.LayoutID != layoutID || (flt.ActiveOnly && !a.IsActive) {
			continue
		}
		if flt.AreaKind != "" && a.Kind != flt.AreaKind {
			continue
		}
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b model.Area) int {
		if a.SortOrder != b.SortOrder {
			return a.SortOrder - b.SortOrder
		}
		return int(a.ID) - int(b.ID)
	})
	return out, nil
}

func (f *fakeStore) ListTables(_ context.Context, layoutID uint64, flt model.LayoutFilter) ([]model.Table, error) {
	if err := f.failure("ListTables"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Table
	for _, t := range f.tables {
		if f.areas[t.AreaID].LayoutID != layoutID {
			continue
		}
		if flt.TableStatus != "" && t.Status != flt.TableStatus {
			continue
		}
		t.EventID = f.eventOfTableLocked(t)
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b model.Table) int { return strings.Compare(a.Number, b.Number) })
	return out, nil
}

func (f *fakeStore) ActiveTabSummaries(_ context.Context, eventID uint64) (map[uint64]model.TabSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[uint64]model.TabSummary{}
	for _, t := range f.tabs {
		if t.EventID != eventID || t.TableID == nil || !t.Status.Active() {
			continue
		}
		s := model.TabSummary{ID: t.ID, UUID: t.UUID, Number: t.Number, Status: t.Status, TotalCents: t.TotalCents}
		for _, p := range f.participants {
			if p.TabID == t.ID && p.IsActive {
				s.Participants++
			}
		}
		out[*t.TableID] = s
	}
	return out, nil
}

func (f *fakeStore) ListGroupCards(_ context.Context, eventID, groupID uint64) ([]model.CardSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CardSummary
	for _, c := range f.cards {
		if c.EventID == eventID && c.GroupID != nil && *c.GroupID == groupID {
			out = append(out, model.CardSummary{ID: c.ID, Number: c.Number, Status: c.Status,
				CreditCents: c.CreditCents, LimitCents: c.LimitCents})
		}
	}
	slices.SortFunc(out, func(a, b model.CardSummary) int { return strings.Compare(a.Number, b.Number) })
	return out, nil
}

// TableStore

func (f *fakeStore) GetTable(_ context.Context, id uint64) (*model.Table, error) {
	if err := f.failure("GetTable"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[id]
	if !ok {
		return nil, apperr.NotFound("table", id)
	}
	t.EventID = f.eventOfTableLocked(t)
	return &t, nil
}

func (f *fakeStore) GetTableForUpdate(ctx context.Context, id uint64) (*model.Table, error) {
	return f.GetTable(ctx, id)
}

func (f *fakeStore) UpdateTableStatus(_ context.Context, id uint64, status model.TableStatus, notes *string) error {
	if err := f.failure("UpdateTableStatus"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tables[id]
	t.Status = status
	if notes != nil {
		t.Notes = notes
	}
	f.tables[id] = t
	return nil
}

// TabStore

func (f *fakeStore) GetTab(_ context.Context, id uint64) (*model.Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tabs[id]
	if !ok {
		return nil, apperr.NotFound("tab", id)
	}
	return &t, nil
}

func (f *fakeStore) HasActiveTab(_ context.Context, tableID uint64) (bool, error) {
	if f.racy {
		return false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tabs {
		if t.TableID != nil && *t.TableID == tableID && t.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) TabNumberExists(_ context.Context, eventID uint64, number string) (bool, error) {
	if f.racy {
		return false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tabs {
		if t.EventID == eventID && t.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) InsertTab(_ context.Context, tab *model.Tab) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tabs {
		if t.EventID == tab.EventID && t.Number == tab.Number {
			return apperr.TabNumberTaken()
		}
		if tab.TableID != nil && t.TableID != nil && *t.TableID == *tab.TableID && t.Status.Active() {
			return apperr.TableHasActiveTab(0)
		}
	}
	tab.ID = f.id()
	f.tabs[tab.ID] = *tab
	return nil
}

func (f *fakeStore) UpdateTabStatus(_ context.Context, id uint64, status model.TabStatus, closedAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tabs[id]
	t.Status = status
	t.ClosedAt = closedAt
	f.tabs[id] = t
	return nil
}

func (f *fakeStore) GetParticipant(_ context.Context, id uint64) (*model.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[id]
	if !ok {
		return nil, apperr.NotFound("participant", id)
	}
	return &p, nil
}

func (f *fakeStore) InsertParticipant(_ context.Context, p *model.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.id()
	f.participants[p.ID] = *p
	return nil
}

func (f *fakeStore) DeactivateParticipant(_ context.Context, id uint64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.participants[id]
	p.IsActive = false
	f.participants[id] = p
	return nil
}

// CardStore

func (f *fakeStore) CardNumberExists(_ context.Context, eventID uint64, number string) (bool, error) {
	if f.racy {
		return false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cards {
		if c.EventID == eventID && c.Number == number {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) InsertCard(_ context.Context, card *model.Card) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cards {
		if c.EventID == card.EventID && c.Number == card.Number {
			return apperr.CardNumberTaken()
		}
	}
	card.ID = f.id()
	f.cards[card.ID] = *card
	return nil
}

// LockStore

func (f *fakeStore) GetLock(_ context.Context, id uint64) (*model.Lock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locks[id]
	if !ok {
		return nil, apperr.NotFound("lock", id)
	}
	return &l, nil
}

func (f *fakeStore) ActiveLockFor(_ context.Context, kind model.LockKind, refID uint64) (*model.Lock, error) {
	if f.racy {
		return nil, apperr.NotFound("lock", refID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.locks {
		if l.Kind == kind && l.RefID == refID && l.IsActive {
			return &l, nil
		}
	}
	return nil, apperr.NotFound("lock", refID)
}

func (f *fakeStore) InsertLock(_ context.Context, lock *model.Lock) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.locks {
		if l.Kind == lock.Kind && l.RefID == lock.RefID && l.IsActive {
			return apperr.EntityLocked("", 0)
		}
	}
	lock.ID = f.id()
	f.locks[lock.ID] = *lock
	return nil
}

func (f *fakeStore) ReleaseLock(_ context.Context, id uint64, by *uint64, _ time.Time) error {
	if err := f.failure("ReleaseLock"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.locks[id]
	if !ok || !l.IsActive {
		return apperr.Conflict("lock_inactive", "lock is no longer active").On("lock", id)
	}
	l.IsActive = false
	l.CancelledBy = by
	f.locks[id] = l
	return nil
}

func (f *fakeStore) ListActiveLocks(_ context.Context, eventID uint64, now time.Time) ([]model.Lock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Lock
	for _, l := range f.locks {
		if l.EventID == eventID && l.Effective(now) {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b model.Lock) int { return int(a.ID) - int(b.ID) })
	return out, nil
}

func (f *fakeStore) ExpiredLocks(_ context.Context, now time.Time, limit int) ([]model.Lock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Lock
	for _, l := range f.locks {
		if l.IsActive && l.Temporary && l.ExpiresAt != nil && l.ExpiresAt.Before(now) {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b model.Lock) int { return int(a.ID) - int(b.ID) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) EntityExists(_ context.Context, kind model.LockKind, refID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch kind {
	case model.LockClient:
		_, ok := f.clients[refID]
		return ok, nil
	case model.LockArea:
		_, ok := f.areas[refID]
		return ok, nil
	case model.LockTable:
		_, ok := f.tables[refID]
		return ok, nil
	case model.LockTab:
		_, ok := f.tabs[refID]
		return ok, nil
	}
	return false, nil
}

func (f *fakeStore) AreaEventID(_ context.Context, areaID uint64) (uint64, error) {
	if err := f.failure("AreaEventID"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.areas[areaID]
	if !ok {
		return 0, apperr.NotFound("area", areaID)
	}
	for _, l := range f.layouts {
		if l.ID == a.LayoutID {
			return l.EventID, nil
		}
	}
	return 0, apperr.NotFound("area", areaID)
}

// StatsStore

func (f *fakeStore) CountTablesByStatus(_ context.Context, eventID uint64) (map[model.TableStatus]int, error) {
	if err := f.failure("CountTablesByStatus"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[model.TableStatus]int{}
	for _, t := range f.tables {
		if f.eventOfTableLocked(t) == eventID {
			out[t.Status]++
		}
	}
	return out, nil
}

func (f *fakeStore) TabTotals(_ context.Context, eventID uint64) (model.TabTotals, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var tt model.TabTotals
	for _, t := range f.tabs {
		if t.EventID != eventID {
			continue
		}
		tt.TabsCounted++
		tt.RevenueCents += t.TotalCents
		switch t.Status {
		case model.TabOpen:
			tt.Open++
		case model.TabBlocked:
			tt.Blocked++
		}
		if !t.Status.Active() {
			continue
		}
		for _, p := range f.participants {
			if p.TabID == t.ID && p.IsActive {
				tt.Participants++
			}
		}
	}
	return tt, nil
}

// SearchStore

func capHits(hits []model.SearchHit, limit int) []model.SearchHit {
	slices.SortFunc(hits, func(a, b model.SearchHit) int { return int(a.ID) - int(b.ID) })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func (f *fakeStore) SearchClients(_ context.Context, taxID string, limit int) ([]model.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SearchHit
	for _, c := range f.clients {
		if strings.Contains(c.TaxID, taxID) {
			out = append(out, model.SearchHit{Type: model.SearchClient, ID: c.ID, Title: c.Name, Subtitle: c.TaxID})
		}
	}
	return capHits(out, limit), nil
}

func (f *fakeStore) SearchTables(_ context.Context, eventID uint64, text string, limit int) ([]model.SearchHit, error) {
	if err := f.failure("SearchTables"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SearchHit
	for _, t := range f.tables {
		if f.eventOfTableLocked(t) == eventID && (strings.Contains(t.Number, text) || strings.Contains(t.Name, text)) {
			out = append(out, model.SearchHit{Type: model.SearchTable, ID: t.ID, Title: t.Number, Status: string(t.Status)})
		}
	}
	return capHits(out, limit), nil
}

func (f *fakeStore) SearchTabs(_ context.Context, eventID uint64, text string, limit int) ([]model.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SearchHit
	for _, t := range f.tabs {
		if t.EventID == eventID && strings.Contains(t.Number, text) {
			out = append(out, model.SearchHit{Type: model.SearchTab, ID: t.ID, Title: t.Number, Status: string(t.Status)})
		}
	}
	return capHits(out, limit), nil
}

func (f *fakeStore) SearchCards(_ context.Context, eventID uint64, text string, limit int) ([]model.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SearchHit
	for _, c := range f.cards {
		if c.EventID == eventID && (strings.Contains(c.Number, text) || strings.Contains(c.AccessCode, text)) {
			out = append(out, model.SearchHit{Type: model.SearchCard, ID: c.ID, Title: c.Number, Status: string(c.Status)})
		}
	}
	return capHits(out, limit), nil
}
