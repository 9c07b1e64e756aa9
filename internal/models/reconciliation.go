package models

import "time"

const ReconciliationReasonInsufficientStock = "insufficient_stock"

// ReconciliationRecord marks a payment the gateway captured that could not
// be committed against inventory. It is the operator's queue for manual
// refunds; the engine never resolves these on its own.
type ReconciliationRecord struct {
	ID               string     `json:"id"`
	GatewayReference string     `json:"gateway_reference"`
	TierID           string     `json:"tier_id"`
	Quantity         int        `json:"quantity"`
	CapturedAt       time.Time  `json:"captured_at"`
	Reason           string     `json:"reason"`
	FlaggedAt        time.Time  `json:"flagged_at"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
}

func (r *ReconciliationRecord) IsResolved() bool {
	return r.ResolvedAt != nil
}
