package kafka

import "time"

// Events published by the ticketing core. Downstream consumers (analytics,
// operator tooling) key on tier/event ids; publication is best-effort and
// always happens after the owning transaction commits.

type PurchaseConfirmedEvent struct {
	IntentID         string    `json:"intent_id"`
	TierID           string    `json:"tier_id"`
	BuyerID          string    `json:"buyer_id"`
	GatewayReference string    `json:"gateway_reference"`
	Quantity         int       `json:"quantity"`
	PaidAt           time.Time `json:"paid_at"`
	Timestamp        time.Time `json:"timestamp"`
}

type CredentialIssuedEvent struct {
	CredentialID string    `json:"credential_id"`
	IntentID     string    `json:"intent_id"`
	TierID       string    `json:"tier_id"`
	AttendeeName string    `json:"attendee_name,omitempty"`
	IssuedAt     time.Time `json:"issued_at"`
	Timestamp    time.Time `json:"timestamp"`
}

// PaymentFlaggedEvent signals a captured payment that could not be committed
// against inventory and now needs a manual refund.
type PaymentFlaggedEvent struct {
	ReconciliationID string    `json:"reconciliation_id"`
	GatewayReference string    `json:"gateway_reference"`
	TierID           string    `json:"tier_id"`
	Quantity         int       `json:"quantity"`
	Reason           string    `json:"reason"`
	FlaggedAt        time.Time `json:"flagged_at"`
	Timestamp        time.Time `json:"timestamp"`
}

// Topic names
const (
	TopicPurchaseConfirmed = "PURCHASE_CONFIRMED"
	TopicCredentialIssued  = "CREDENTIAL_ISSUED"
	TopicPaymentFlagged    = "PAYMENT_FLAGGED"
)
