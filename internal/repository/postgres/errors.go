package postgres

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row. Services map it
	// onto their own typed errors.
	ErrNotFound = errors.New("record not found")

	// ErrNoIntents is returned by ConfirmReference when no purchase intents
	// exist for the gateway reference.
	ErrNoIntents = errors.New("no purchase intents for reference")

	// ErrInsufficientRemaining is returned when the conditional stock
	// decrement matches no row: remaining capacity dropped below the
	// confirmed quantity between intent creation and payment confirmation.
	ErrInsufficientRemaining = errors.New("remaining capacity below requested quantity")
)
