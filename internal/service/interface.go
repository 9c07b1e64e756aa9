package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/evently-hq/evently/pkg/mailer"
	"github.com/evently-hq/evently/pkg/paystack"
	"github.com/evently-hq/evently/pkg/ticketpdf"
)

// PaymentGateway creates checkout sessions with the external payment
// provider. Confirmation arrives asynchronously through the webhook, never
// through this interface.
type PaymentGateway interface {
	InitializePayment(ctx context.Context, email string, amount decimal.Decimal) (*paystack.CheckoutSession, error)
}

// DeliveryService sends rendered tickets to the buyer, best-effort.
type DeliveryService interface {
	Deliver(ctx context.Context, recipientEmail, recipientName, subject, html string, attachments []mailer.Attachment) error
	TicketsHTML(recipientName string) string
}

// RenderFunc produces the printable ticket artifact for one credential.
type RenderFunc func(ticketpdf.Artifact) ([]byte, error)
