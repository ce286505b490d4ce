package apperr

// Stable codes for the invariant violations the engine enforces.  The
// repository maps unique-key violations onto the same codes, so a conflict
// reads the same whether the pre-check or the storage arbiter caught it.
const (
	CodeTableHasActiveTab = "table_has_active_tab"
	CodeTabNumberTaken    = "tab_number_taken"
	CodeCardNumberTaken   = "card_number_taken"
	CodeEntityLocked      = "entity_locked"
	CodeDuplicate         = "duplicate"
)

// TableHasActiveTab reports a second open or blocked tab on one table.
func TableHasActiveTab(tableID uint64) *Error {
	return Conflict(CodeTableHasActiveTab, "table already has an active tab").On("table", tableID)
}

// TabNumberTaken reports a tab number reused within a venue-event.
func TabNumberTaken() *Error {
	return Conflict(CodeTabNumberTaken, "tab number already exists").On("tab", 0)
}

// CardNumberTaken reports a card number reused within a venue-event.
func CardNumberTaken() *Error {
	return Conflict(CodeCardNumberTaken, "card number already exists").On("card", 0)
}

// EntityLocked reports a second active lock on the same entity.
func EntityLocked(kind string, refID uint64) *Error {
	return Conflict(CodeEntityLocked, "entity already locked").On(kind, refID)
}
