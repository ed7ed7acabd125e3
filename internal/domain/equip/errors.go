package equip

import "errors"

var (
	// ErrInventoryFull aborts a run when a hutch-resident target needs an
	// inventory slot and no relocation candidate can free one.
	ErrInventoryFull = errors.New("inventory full and no pet can be relocated")

	// ErrHutchFull aborts a run when freeing an inventory slot would need
	// hutch space and the hutch has none.
	ErrHutchFull = errors.New("hutch full, cannot free an inventory slot")
)
