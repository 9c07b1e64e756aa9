package service

import "errors"

var (
	ErrEventNotFound          = errors.New("event not found")
	ErrTierNotFound           = errors.New("ticket tier not found")
	ErrIntentNotFound         = errors.New("purchase intent not found")
	ErrCredentialNotFound     = errors.New("credential not found")
	ErrReconciliationNotFound = errors.New("reconciliation record not found")

	// ErrValidation wraps malformed input: attendee-name count mismatch,
	// duplicate tier names, capacity below units sold.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientStock surfaces capacity exhaustion, at reserve or at
	// confirm time. At confirm time the payment is already captured and a
	// reconciliation record is flagged alongside this error.
	ErrInsufficientStock = errors.New("insufficient stock")

	ErrAlreadyScanned = errors.New("credential already scanned")
	ErrTierMismatch   = errors.New("ticket tier does not belong to this event")
	ErrUnauthorized   = errors.New("user does not own this event")

	// ErrGatewayUnavailable marks a transient payment-gateway failure; the
	// buyer can simply retry checkout.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)
