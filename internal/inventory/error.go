package inventory

import "errors"

var (
	// -- Validation & Input --
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrInvalidMovement = errors.New("invalid stock movement type")

	// -- Resource State --
	ErrInventoryNotFound    = errors.New("inventory not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrReservationNotActive = errors.New("reservation is no longer active")

	// -- Ledger Integrity --
	ErrLedgerOutOfSync = errors.New("reservation exceeds ledger counters")
)
