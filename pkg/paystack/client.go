package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Client talks to the Paystack transaction API and verifies webhook
// signatures. Amounts are sent in subunits (kobo/cents), which is why
// InitializePayment multiplies by 100.
type Client struct {
	baseURL     string
	secretKey   string
	callbackURL string
	http        *http.Client
}

type Config struct {
	BaseURL   string
	SecretKey string
	// CallbackURL is where Paystack redirects the buyer after checkout.
	CallbackURL string
	Timeout     time.Duration
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		secretKey:   cfg.SecretKey,
		callbackURL: cfg.CallbackURL,
		http:        &http.Client{Timeout: timeout},
	}
}

type CheckoutSession struct {
	Reference        string `json:"reference"`
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
}

type initializeResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    CheckoutSession `json:"data"`
}

// InitializePayment creates a payment session and returns the gateway
// reference plus the redirect URL the buyer completes payment on.
func (c *Client) InitializePayment(ctx context.Context, email string, amount decimal.Decimal) (*CheckoutSession, error) {
	body := map[string]any{
		"email":  email,
		"amount": amount.Mul(decimal.NewFromInt(100)).IntPart(),
	}
	if c.callbackURL != "" {
		body["callback_url"] = c.callbackURL
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initialize payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build initialize request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paystack request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode paystack response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !parsed.Status {
		return nil, fmt.Errorf("paystack initialize rejected: status=%d message=%q", resp.StatusCode, parsed.Message)
	}

	return &parsed.Data, nil
}

// VerifySignature checks the X-Paystack-Signature header: an HMAC-SHA512 of
// the raw webhook body keyed with the account secret.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// WebhookEvent is the subset of the Paystack webhook payload the service
// consumes. Only charge.success events trigger reconciliation.
type WebhookEvent struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

type WebhookData struct {
	Reference string    `json:"reference"`
	Amount    int64     `json:"amount"`
	PaidAt    time.Time `json:"paid_at"`
}

const EventChargeSuccess = "charge.success"

func ParseWebhook(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}
	return &event, nil
}
