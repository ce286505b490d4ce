package service

import (
	"context"

	"github.com/iliyamo/venue-operations/internal/apperr"
	"github.com/iliyamo/venue-operations/internal/model"
)

// StatsAggregator computes the statistics snapshot of a venue-event.
type StatsAggregator struct {
	store Store
}

// NewStatsAggregator returns an aggregator reading from store.
func NewStatsAggregator(store Store) *StatsAggregator {
	return &StatsAggregator{store: store}
}

// Compute reads the table and tab counters of eventID and derives the
// snapshot.
func (s *StatsAggregator) Compute(ctx context.Context, eventID uint64) (*model.Stats, error) {
	if eventID == 0 {
		return nil, apperr.Validation("invalid_event", "event id is required")
	}
	counts, err := s.store.CountTablesByStatus(ctx, eventID)
	if err != nil {
		return nil, err
	}
	tabs, err := s.store.TabTotals(ctx, eventID)
	if err != nil {
		return nil, err
	}

	st := &model.Stats{
		EventID:           eventID,
		TablesOccupied:    counts[model.TableOccupied],
		TablesAvailable:   counts[model.TableAvailable],
		TablesReserved:    counts[model.TableReserved],
		TablesBlocked:     counts[model.TableBlocked],
		TablesMaintenance: counts[model.TableMaintenance],
		TabsOpen:          tabs.Open,
		TabsBlocked:       tabs.Blocked,
		TabsCounted:       tabs.TabsCounted,
		RevenueCents:      tabs.RevenueCents,
		Participants:      tabs.Participants,
	}
	for _, n := range counts {
		st.TablesTotal += n
	}
	st.Finalize()
	return st, nil
}
