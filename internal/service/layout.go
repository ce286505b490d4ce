package service

import (
	"context"

	"github.com/iliyamo/venue-operations/internal/apperr"
	"github.com/iliyamo/venue-operations/internal/clock"
	"github.com/iliyamo/venue-operations/internal/model"
)

// LayoutAssembler builds the Layout -> Area -> Table -> active Tab tree of a
// venue-event.  It never retries: storage errors propagate to the caller.
type LayoutAssembler struct {
	store Store
	clock clock.Clock
}

// NewLayoutAssembler returns an assembler reading from store.
func NewLayoutAssembler(store Store, clk clock.Clock) *LayoutAssembler {
	return &LayoutAssembler{store: store, clock: clk}
}

// Build assembles the tree for eventID.  An event without a layout gets a
// default empty one, so callers always receive a usable tree.
func (a *LayoutAssembler) Build(ctx context.Context, eventID uint64, f model.LayoutFilter) (*model.LayoutTree, error) {
	if eventID == 0 {
		return nil, apperr.Validation("invalid_event", "event id is required")
	}
	if f.TableStatus != "" && !f.TableStatus.Valid() {
		return nil, apperr.Validation("invalid_status", "unknown table status: "+string(f.TableStatus))
	}

	layout, err := a.getOrCreate(ctx, eventID)
	if err != nil {
		return nil, err
	}
	tree := &model.LayoutTree{Layout: *layout, Areas: []model.AreaNode{}}

	if f.CardGroupID != nil {
		cards, err := a.store.ListGroupCards(ctx, eventID, *f.CardGroupID)
		if err != nil {
			return nil, err
		}
		tree.Cards = append([]model.CardSummary{}, cards...)
	}

	areas, err := a.store.ListAreas(ctx, layout.ID, f)
	if err != nil {
		return nil, err
	}
	if len(areas) == 0 {
		return tree, nil
	}

	tables, err := a.store.ListTables(ctx, layout.ID, f)
	if err != nil {
		return nil, err
	}
	active, err := a.store.ActiveTabSummaries(ctx, eventID)
	if err != nil {
		return nil, err
	}

	byArea := make(map[uint64][]model.TableNode, len(areas))
	for _, t := range tables {
		node := model.TableNode{Table: t}
		if s, ok := active[t.ID]; ok {
			node.ActiveTab = &s
		}
		byArea[t.AreaID] = append(byArea[t.AreaID], node)
	}
	for _, area := range areas {
		nodes := byArea[area.ID]
		if nodes == nil {
			nodes = []model.TableNode{}
		}
		tree.Areas = append(tree.Areas, model.AreaNode{Area: area, Tables: nodes})
	}
	return tree, nil
}

func (a *LayoutAssembler) getOrCreate(ctx context.Context, eventID uint64) (*model.Layout, error) {
	l, err := a.store.GetLayoutByEvent(ctx, eventID)
	if err == nil {
		return l, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}

	now := a.clock.Now()
	l = &model.Layout{
		EventID:   eventID,
		Width:     model.DefaultLayoutWidth,
		Height:    model.DefaultLayoutHeight,
		Scale:     model.DefaultLayoutScale,
		Settings:  model.LayoutSettings{Version: model.SettingsVersion},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.CreateLayout(ctx, l); err != nil {
		// Lost the race to a concurrent first access: read the winner's row.
		if apperr.IsConflict(err) {
			return a.store.GetLayoutByEvent(ctx, eventID)
		}
		return nil, err
	}
	return l, nil
}
