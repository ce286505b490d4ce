package model

// Stats is the aggregate snapshot of one venue-event, cached for a short TTL.
type Stats struct {
	EventID           uint64  `json:"event_id"`
	TablesTotal       int     `json:"tables_total"`
	TablesOccupied    int     `json:"tables_occupied"`
	TablesAvailable   int     `json:"tables_available"`
	TablesReserved    int     `json:"tables_reserved"`
	TablesBlocked     int     `json:"tables_blocked"`
	TablesMaintenance int     `json:"tables_maintenance"`
	TabsOpen          int     `json:"tabs_open"`
	TabsBlocked       int     `json:"tabs_blocked"`
	TabsCounted       int     `json:"tabs_counted"`
	RevenueCents      int64   `json:"revenue_cents"`
	Participants      int     `json:"participants"`
	AverageTicket     float64 `json:"average_ticket_cents"`
}

// Finalize derives the computed fields from the raw counters.
func (s *Stats) Finalize() {
	if s.TabsCounted > 0 {
		s.AverageTicket = float64(s.RevenueCents) / float64(s.TabsCounted)
	} else {
		s.AverageTicket = 0
	}
}

// TabTotals are the tab-side counters of a venue-event as read from the
// store.  Revenue and TabsCounted span every tab of the event, closed ones
// included; Participants only counts active people on open or blocked tabs.
type TabTotals struct {
	Open         int
	Blocked      int
	TabsCounted  int
	RevenueCents int64
	Participants int
}
