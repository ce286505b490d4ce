package model

// Client is a guest known to the venue.  Clients are global, not scoped to
// a venue-event; TaxID is the national document number used by the search.
type Client struct {
	ID    uint64  // clients.id
	Name  string  // clients.name
	TaxID string  // clients.tax_id
	Phone *string // clients.phone (nullable)
}
