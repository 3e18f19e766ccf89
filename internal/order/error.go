package order

import "errors"

var (
	// -- Validation & Input --
	ErrEmptyOrder    = errors.New("order has no items")
	ErrTotalMismatch = errors.New("order total does not match its components")
	ErrInvalidStatus = errors.New("unknown order status")

	// -- Resource State --
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("cannot access another user's order")
)
