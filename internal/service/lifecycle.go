package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/venue-operations/internal/apperr"
	"github.com/iliyamo/venue-operations/internal/clock"
	"github.com/iliyamo/venue-operations/internal/model"
	"github.com/iliyamo/venue-operations/internal/notify"
)

const maxNumberLen = 20

// Lifecycle owns the state machines of tables, tabs, participants and
// prepaid cards.  Every mutation runs in one store transaction and returns
// its effects; nothing is published or invalidated here.
type Lifecycle struct {
	store Store
	clock clock.Clock
	newUUID func() string
	random io.Reader
}

// NewLifecycle returns a lifecycle manager backed by store.
func NewLifecycle(store Store, clk clock.Clock) *Lifecycle {
	return &Lifecycle{store: store, clock: clk, newUUID: uuid.NewString}
}

// SetTableStatusInput moves a table to Status by staff decision.
type SetTableStatusInput struct {
	TableID uint64
	Status  model.TableStatus
	ActorID uint64
	Notes   *string
}

// OpenTabInput opens a tab, optionally on a table.
type OpenTabInput struct {
	EventID  uint64
	Number   string
	TableID  *uint64
	ClientID *uint64
	Kind     model.TabKind
	ActorID  uint64
	Notes    *string
	Settings *model.TabSettings
}

// IssueCardInput issues a prepaid card.
type IssueCardInput struct {
	EventID     uint64
	Number      string
	ClientID    *uint64
	GroupID     *uint64
	CreditCents *int64
	LimitCents  *int64
	ActorID     uint64
	Settings    *model.CardSettings
}

func newEvent(name string, eventID, actorID uint64, at time.Time, payload any) notify.Event {
	return notify.Event{Name: name, EventID: eventID, ActorID: actorID, Timestamp: at, Payload: payload}
}

func tableUpdated(t *model.Table, actorID uint64, at time.Time) notify.Event {
	return newEvent(notify.TableUpdated, t.EventID, actorID, at, notify.TablePayload{
		EventID:   t.EventID,
		TableID:   t.ID,
		Number:    t.Number,
		NewStatus: t.Status,
		ActorID:   actorID,
		Timestamp: at,
	})
}

func normalizeNumber(field, n string) (string, error) {
	n = strings.TrimSpace(n)
	if n == "" {
		return "", apperr.Validation("invalid_"+field, field+" is required")
	}
	if len(n) > maxNumberLen {
		return "", apperr.Validation("invalid_"+field, field+" is too long")
	}
	return n, nil
}

// SetTableStatus moves a table to any known status.  Transitions between
// statuses are not restricted.
func (l *Lifecycle) SetTableStatus(ctx context.Context, in SetTableStatusInput) (*model.Table, Effects, error) {
	var fx Effects
	if in.TableID == 0 {
		return nil, fx, apperr.Validation("invalid_table", "table id is required")
	}
	if !in.Status.Valid() {
		return nil, fx, apperr.Validation("invalid_status", "unknown table status: "+string(in.Status))
	}

	var table *model.Table
	err := l.store.WithTx(ctx, func(ctx context.Context) error {
		t, err := l.store.GetTableForUpdate(ctx, in.TableID)
		if err != nil {
			return err
		}
		if err := l.store.UpdateTableStatus(ctx, t.ID, in.Status, in.Notes); err != nil {
			return err
		}
		t.Status = in.Status
		if in.Notes != nil {
			t.Notes = in.Notes
		}
		table = t
		return nil
	})
	if err != nil {
		return nil, fx, err
	}

	now := l.clock.Now()
	table.UpdatedAt = now
	fx.emit(tableUpdated(table, in.ActorID, now))
	fx.invalidate(table.EventID)
	return table, fx, nil
}

// OpenTab opens a tab.  A table may carry at most one open or blocked tab and
// tab numbers are unique within the venue-event; both are checked first and
// enforced again by the store's unique keys.
func (l *Lifecycle) OpenTab(ctx context.Context, in OpenTabInput) (*model.Tab, Effects, error) {
	var fx Effects
	if in.EventID == 0 {
		return nil, fx, apperr.Validation("invalid_event", "event id is required")
	}
	number, err := normalizeNumber("tab_number", in.Number)
	if err != nil {
		return nil, fx, err
	}
	if in.Kind == "" {
		in.Kind = model.TabKindTable
	}
	if !in.Kind.Valid() {
		return nil, fx, apperr.Validation("invalid_kind", "unknown tab kind: "+string(in.Kind))
	}

	now := l.clock.Now()
	tab := &model.Tab{
		UUID:     l.newUUID(),
		EventID:  in.EventID,
		TableID:  in.TableID,
		Number:   number,
		ClientID: in.ClientID,
		Kind:     in.Kind,
		Notes:    in.Notes,
		OpenedBy: in.ActorID,
		Settings: model.TabSettings{Version: model.SettingsVersion},
		Status:   model.TabOpen,
		OpenedAt: now,
	}
	if in.Settings != nil {
		tab.Settings = *in.Settings
	}

	var table *model.Table
	err = l.store.WithTx(ctx, func(ctx context.Context) error {
		if in.TableID != nil {
			t, err := l.store.GetTableForUpdate(ctx, *in.TableID)
			if err != nil {
				return err
			}
			if t.EventID != in.EventID {
				return apperr.Validation("event_mismatch", "table belongs to another event").On("table", t.ID)
			}
			busy, err := l.store.HasActiveTab(ctx, t.ID)
			if err != nil {
				return err
			}
			if busy {
				return apperr.TableHasActiveTab(t.ID)
			}
			if t.Status == model.TableBlocked || t.Status == model.TableMaintenance {
				return apperr.Conflict("table_unavailable", "table is "+string(t.Status)).On("table", t.ID)
			}
			table = t
		}
		taken, err := l.store.TabNumberExists(ctx, in.EventID, number)
		if err != nil {
			return err
		}
		if taken {
			return apperr.TabNumberTaken()
		}
		if err := l.store.InsertTab(ctx, tab); err != nil {
			if table != nil && apperr.CodeOf(err) == apperr.CodeTableHasActiveTab {
				return apperr.TableHasActiveTab(table.ID)
			}
			return err
		}
		if table != nil && table.Status != model.TableOccupied {
			if err := l.store.UpdateTableStatus(ctx, table.ID, model.TableOccupied, nil); err != nil {
				return err
			}
			table.Status = model.TableOccupied
			table.UpdatedAt = now
		} else {
			table = nil
		}
		return nil
	})
	if err != nil {
		return nil, fx, err
	}

	fx.emit(newEvent(notify.TabOpened, tab.EventID, in.ActorID, now, notify.TabPayload{Tab: *tab, ActorID: in.ActorID}))
	if table != nil {
		fx.emit(tableUpdated(table, in.ActorID, now))
	}
	fx.invalidate(tab.EventID)
	return tab, fx, nil
}

// CloseTab closes an open tab and frees its table.  Settlement happens
// elsewhere; a blocked tab must be unlocked first.
func (l *Lifecycle) CloseTab(ctx context.Context, tabID, actorID uint64) (*model.Tab, Effects, error) {
	var fx Effects
	if tabID == 0 {
		return nil, fx, apperr.Validation("invalid_tab", "tab id is required")
	}

	now := l.clock.Now()
	var tab *model.Tab
	var freed *model.Table
	err := l.store.WithTx(ctx, func(ctx context.Context) error {
		t, err := l.store.GetTab(ctx, tabID)
		if err != nil {
			return err
		}
		switch t.Status {
		case model.TabClosed:
			return apperr.Conflict("tab_closed", "tab already closed").On("tab", t.ID)
		case model.TabBlocked:
			return apperr.Conflict("tab_blocked", "tab is blocked").On("tab", t.ID)
		}
		if err := l.store.UpdateTabStatus(ctx, t.ID, model.TabClosed, &now); err != nil {
			return err
		}
		t.Status = model.TabClosed
		t.ClosedAt = &now
		tab = t

		if t.TableID == nil {
			return nil
		}
		table, err := l.store.GetTableForUpdate(ctx, *t.TableID)
		if err != nil {
			return err
		}
		// Only occupancy is undone; a table blocked or under maintenance
		// keeps that status.
		if table.Status == model.TableOccupied {
			if err := l.store.UpdateTableStatus(ctx, table.ID, model.TableAvailable, nil); err != nil {
				return err
			}
			table.Status = model.TableAvailable
			table.UpdatedAt = now
			freed = table
		}
		return nil
	})
	if err != nil {
		return nil, fx, err
	}

	fx.emit(newEvent(notify.TabClosed, tab.EventID, actorID, now, notify.TabPayload{Tab: *tab, ActorID: actorID}))
	if freed != nil {
		fx.emit(tableUpdated(freed, actorID, now))
	}
	fx.invalidate(tab.EventID)
	return tab, fx, nil
}

// AddParticipant attaches a person to an open or blocked tab.
func (l *Lifecycle) AddParticipant(ctx context.Context, tabID uint64, clientID *uint64, actorID uint64) (*model.Participant, Effects, error) {
	var fx Effects
	if tabID == 0 {
		return nil, fx, apperr.Validation("invalid_tab", "tab id is required")
	}

	now := l.clock.Now()
	p := &model.Participant{TabID: tabID, ClientID: clientID, IsActive: true, JoinedAt: now}
	var tab *model.Tab
	err := l.store.WithTx(ctx, func(ctx context.Context) error {
		t, err := l.store.GetTab(ctx, tabID)
		if err != nil {
			return err
		}
		if !t.Status.Active() {
			return apperr.Conflict("tab_not_active", "tab is not active").On("tab", t.ID)
		}
		tab = t
		return l.store.InsertParticipant(ctx, p)
	})
	if err != nil {
		return nil, fx, err
	}

	fx.emit(newEvent(notify.ParticipantJoined, tab.EventID, actorID, now, notify.ParticipantPayload{
		Participant: *p, TabNumber: tab.Number, ActorID: actorID,
	}))
	fx.invalidate(tab.EventID)
	return p, fx, nil
}

// RemoveParticipant takes a person out of the live headcount.
func (l *Lifecycle) RemoveParticipant(ctx context.Context, participantID, actorID uint64) (*model.Participant, Effects, error) {
	var fx Effects
	if participantID == 0 {
		return nil, fx, apperr.Validation("invalid_participant", "participant id is required")
	}

	now := l.clock.Now()
	var p *model.Participant
	var tab *model.Tab
	err := l.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = l.store.GetParticipant(ctx, participantID); err != nil {
			return err
		}
		if !p.IsActive {
			return apperr.Conflict("participant_inactive", "participant already left").On("participant", p.ID)
		}
		if tab, err = l.store.GetTab(ctx, p.TabID); err != nil {
			return err
		}
		if err := l.store.DeactivateParticipant(ctx, p.ID, now); err != nil {
			return err
		}
		p.IsActive = false
		return nil
	})
	if err != nil {
		return nil, fx, err
	}

	fx.emit(newEvent(notify.ParticipantLeft, tab.EventID, actorID, now, notify.ParticipantPayload{
		Participant: *p, TabNumber: tab.Number, ActorID: actorID,
	}))
	fx.invalidate(tab.EventID)
	return p, fx, nil
}

// IssueCard issues a prepaid card with a freshly derived access code.  Cards
// are not part of the layout tree, so only a grouped card, which appears in
// group-filtered layouts, invalidates the cache.
func (l *Lifecycle) IssueCard(ctx context.Context, in IssueCardInput) (*model.Card, Effects, error) {
	var fx Effects
	if in.EventID == 0 {
		return nil, fx, apperr.Validation("invalid_event", "event id is required")
	}
	number, err := normalizeNumber("card_number", in.Number)
	if err != nil {
		return nil, fx, err
	}
	card := &model.Card{
		UUID:     l.newUUID(),
		EventID:  in.EventID,
		GroupID:  in.GroupID,
		Number:   number,
		ClientID: in.ClientID,
		Settings: model.CardSettings{Version: model.SettingsVersion},
		Status:   model.CardActive,
		IssuedBy: in.ActorID,
	}
	if in.CreditCents != nil {
		card.CreditCents = *in.CreditCents
	}
	if in.LimitCents != nil {
		card.LimitCents = *in.LimitCents
	}
	if card.CreditCents < 0 || card.LimitCents < 0 {
		return nil, fx, apperr.Validation("invalid_amount", "credit and limit must not be negative")
	}
	if in.Settings != nil {
		card.Settings = *in.Settings
	}

	salt, err := newSalt(l.random)
	if err != nil {
		return nil, fx, apperr.Storage("generate access code", err)
	}
	card.AccessCode = AccessCode(in.EventID, number, salt)

	now := l.clock.Now()
	card.CreatedAt = now
	err = l.store.WithTx(ctx, func(ctx context.Context) error {
		taken, err := l.store.CardNumberExists(ctx, in.EventID, number)
		if err != nil {
			return err
		}
		if taken {
			return apperr.CardNumberTaken()
		}
		return l.store.InsertCard(ctx, card)
	})
	if err != nil {
		return nil, fx, err
	}

	fx.emit(newEvent(notify.CardIssued, card.EventID, in.ActorID, now, notify.CardPayload{
		CardID:  card.ID,
		UUID:    card.UUID,
		Number:  card.Number,
		GroupID: card.GroupID,
		Status:  card.Status,
		ActorID: in.ActorID,
	}))
	if card.GroupID != nil {
		fx.invalidate(card.EventID)
	}
	return card, fx, nil
}
