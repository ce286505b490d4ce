package model

import "time"

// Default dimensions applied when a layout is created implicitly on first
// access to a venue-event.
const (
	DefaultLayoutWidth  = 1200
	DefaultLayoutHeight = 800
	DefaultLayoutScale  = 1.0
)

// Layout is the floor plan of one venue-event.  There is exactly one layout
// per event; it is created on first access and never deleted while the
// event is running.
//
// Fields:
//  ID        – primary key identifier.
//  EventID   – venue-event the layout belongs to (unique).
//  Width     – canvas width used by terminals to render the plan.
//  Height    – canvas height.
//  Scale     – rendering scale, 1.0 is identity.
//  Settings  – typed configuration blob.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Layout struct {
	ID        uint64         `json:"id"`         // layouts.id
	EventID   uint64         `json:"event_id"`   // layouts.event_id
	Width     int            `json:"width"`      // layouts.width
	Height    int            `json:"height"`     // layouts.height
	Scale     float64        `json:"scale"`      // layouts.scale
	Settings  LayoutSettings `json:"settings"`   // layouts.settings (JSON)
	CreatedAt time.Time      `json:"created_at"` // layouts.created_at
	UpdatedAt time.Time      `json:"updated_at"` // layouts.updated_at
}

// Area is a named zone of the venue, such as "VIP" or "Bar".  Position and
// size only matter to the terminals drawing the plan.
type Area struct {
	ID           uint64           `json:"id"`           // areas.id
	LayoutID     uint64           `json:"layout_id"`    // areas.layout_id
	Name         string           `json:"name"`         // areas.name
	Kind         string           `json:"kind"`         // areas.kind (bar, vip, ...)
	PosX         int              `json:"pos_x"`        // areas.pos_x
	PosY         int              `json:"pos_y"`        // areas.pos_y
	Width        int              `json:"width"`        // areas.width
	Height       int              `json:"height"`       // areas.height
	Capacity     int              `json:"capacity"`     // areas.capacity
	SortOrder    int              `json:"sort_order"`   // areas.sort_order
	IsActive     bool             `json:"is_active"`    // areas.is_active
	Settings     AreaSettings     `json:"settings"`     // areas.settings (JSON)
	Restrictions AreaRestrictions `json:"restrictions"` // areas.restrictions (JSON)
}

// TableStatus is the occupancy state of a physical table.
type TableStatus string

const (
	TableAvailable   TableStatus = "available"
	TableOccupied    TableStatus = "occupied"
	TableReserved    TableStatus = "reserved"
	TableBlocked     TableStatus = "blocked"
	TableMaintenance TableStatus = "maintenance"
)

// Valid reports whether s is one of the known table statuses.
func (s TableStatus) Valid() bool {
	switch s {
	case TableAvailable, TableOccupied, TableReserved, TableBlocked, TableMaintenance:
		return true
	}
	return false
}

// Table is a physical seating unit.  Number is unique within the
// venue-event.  A table carries at most one open or blocked tab at a time.
type Table struct {
	ID            uint64        `json:"id"`              // venue_tables.id
	AreaID        uint64        `json:"area_id"`         // venue_tables.area_id
	EventID       uint64        `json:"event_id"`        // venue_tables.event_id
	Number        string        `json:"number"`          // venue_tables.number
	Name          string        `json:"name"`            // venue_tables.name
	Kind          string        `json:"kind"`            // venue_tables.kind
	Capacity      int           `json:"capacity"`        // venue_tables.capacity
	PosX          int           `json:"pos_x"`           // venue_tables.pos_x
	PosY          int           `json:"pos_y"`           // venue_tables.pos_y
	Width         int           `json:"width"`           // venue_tables.width
	Height        int           `json:"height"`          // venue_tables.height
	Shape         string        `json:"shape"`           // venue_tables.shape
	MinSpendCents int64         `json:"min_spend_cents"` // venue_tables.min_spend_cents
	ServiceFeePct float64       `json:"service_fee_pct"` // venue_tables.service_fee_pct
	Notes         *string       `json:"notes,omitempty"` // venue_tables.notes (nullable)
	Status        TableStatus   `json:"status"`          // venue_tables.status
	Settings      TableSettings `json:"settings"`        // venue_tables.settings (JSON)
	UpdatedAt     time.Time     `json:"updated_at"`      // venue_tables.updated_at
}

// LayoutFilter narrows the layout tree.  The zero value selects everything.
type LayoutFilter struct {
	ActiveOnly  bool        `json:"active_only"`
	AreaKind    string      `json:"area_kind,omitempty"`
	TableStatus TableStatus `json:"table_status,omitempty"`
	CardGroupID *uint64     `json:"card_group_id,omitempty"`
}

// LayoutTree is the assembled Layout -> Area -> Table -> active Tab view of
// one venue-event.  It is the value stored in the layout cache.
type LayoutTree struct {
	Layout Layout        `json:"layout"`
	Areas  []AreaNode    `json:"areas"`
	Cards  []CardSummary `json:"cards,omitempty"`
}

// AreaNode is one area of the tree with its filtered tables.
type AreaNode struct {
	Area
	Tables []TableNode `json:"tables"`
}

// TableNode is a table with the summary of its active tab, if any.
type TableNode struct {
	Table
	ActiveTab *TabSummary `json:"active_tab,omitempty"`
}
