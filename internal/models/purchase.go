package models

import "time"

type IntentState string

const (
	IntentStatePending   IntentState = "PENDING"
	IntentStateConfirmed IntentState = "CONFIRMED"
)

// PurchaseIntent is a buyer's claim to purchase Quantity units of a tier,
// created at checkout initiation and bound to a unique payment gateway
// reference. It holds no capacity until the payment is confirmed.
type PurchaseIntent struct {
	ID               string      `json:"id"`
	TierID           string      `json:"tier_id"`
	BuyerID          string      `json:"buyer_id"`
	BuyerEmail       string      `json:"buyer_email"`
	BuyerName        string      `json:"buyer_name,omitempty"`
	Quantity         int         `json:"quantity"`
	AttendeeNames    []string    `json:"attendee_names,omitempty"`
	GatewayReference string      `json:"gateway_reference"`
	State            IntentState `json:"state"`
	PaidAt           *time.Time  `json:"paid_at,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

func (p *PurchaseIntent) IsConfirmed() bool {
	return p.State == IntentStateConfirmed
}

// AttendeeName returns the attendee name for the given unit index, or ""
// when the tier does not collect names.
func (p *PurchaseIntent) AttendeeName(unit int) string {
	if unit < 0 || unit >= len(p.AttendeeNames) {
		return ""
	}
	return p.AttendeeNames[unit]
}
