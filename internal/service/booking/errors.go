package booking

import "errors"

var (
	// ErrCapacityRejected means the admission check refused the slot.
	// The Decision returned alongside it carries the operator-facing
	// explanation and alternatives.
	ErrCapacityRejected = errors.New("reservation rejected by capacity rules")

	ErrReservationNotFound = errors.New("reservation not found")

	// ErrInFlight means another request with the same idempotency key
	// is still being processed.
	ErrInFlight = errors.New("reservation request already in flight")
)
