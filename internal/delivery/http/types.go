package http

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReservePurchaseRequest struct {
	TierID        string   `json:"tier_id" validate:"required"`
	Quantity      int      `json:"quantity" validate:"required,min=1"`
	BuyerEmail    string   `json:"buyer_email" validate:"required,email"`
	BuyerName     string   `json:"buyer_name"`
	AttendeeNames []string `json:"attendee_names"`
}

type ReservePurchaseResponse struct {
	IntentID         string `json:"intent_id"`
	GatewayReference string `json:"gateway_reference"`
	PaymentURL       string `json:"payment_url"`
}

type ScanRequest struct {
	EventID      string `json:"event_id" validate:"required"`
	Token        string `json:"token"`
	CredentialID string `json:"credential_id"`
}

type ScanResponse struct {
	CredentialID string     `json:"credential_id"`
	AttendeeName string     `json:"attendee_name,omitempty"`
	ScannedAt    *time.Time `json:"scanned_at"`
}

type CreateTiersRequest struct {
	Tiers []TierRequest `json:"tiers" validate:"required,min=1,dive"`
}

type TierRequest struct {
	Name                 string          `json:"name" validate:"required"`
	Description          string          `json:"description"`
	Price                decimal.Decimal `json:"price"`
	TotalCapacity        int             `json:"total_capacity" validate:"required,min=1"`
	RequiresAttendeeName bool            `json:"requires_attendee_name"`
}

type AdjustCapacityRequest struct {
	TotalCapacity int `json:"total_capacity" validate:"required,min=1"`
}

type ChangePriceRequest struct {
	Price decimal.Decimal `json:"price"`
}
