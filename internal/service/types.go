package service

import (
	"github.com/shopspring/decimal"

	"github.com/evently-hq/evently/internal/models"
)

type ReserveInput struct {
	TierID        string
	BuyerID       string
	BuyerEmail    string
	BuyerName     string
	Quantity      int
	AttendeeNames []string
}

type ReserveOutput struct {
	Intent           *models.PurchaseIntent
	GatewayReference string
	PaymentURL       string
}

type ScanInput struct {
	ScannerID    string
	EventID      string
	CredentialID string
}

type TierInput struct {
	Name                 string
	Description          string
	Price                decimal.Decimal
	TotalCapacity        int
	RequiresAttendeeName bool
}

// ScanClaims is the payload embedded in a credential's QR code.
type ScanClaims struct {
	TierID       string
	CredentialID string
}
