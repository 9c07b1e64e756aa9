package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/mailgun/mailgun-go/v4"
)

type Attachment struct {
	Filename string
	Data     []byte
}

// Mailer sends transactional mail through Mailgun. Delivery is best-effort:
// callers log failures and retry out-of-band, they never roll back state.
type Mailer struct {
	mg      *mailgun.MailgunImpl
	from    string
	appName string
}

type Config struct {
	Domain  string
	APIKey  string
	From    string
	AppName string
	// APIBase overrides the Mailgun endpoint, used by tests.
	APIBase string
}

func New(cfg Config) *Mailer {
	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		mg.SetAPIBase(cfg.APIBase)
	}

	return &Mailer{
		mg:      mg,
		from:    cfg.From,
		appName: cfg.AppName,
	}
}

func (m *Mailer) Deliver(ctx context.Context, recipientEmail, recipientName, subject, html string, attachments []Attachment) error {
	msg := m.mg.NewMessage(m.from, subject, "", recipientEmail)
	msg.SetHtml(html)

	for _, att := range attachments {
		msg.AddBufferAttachment(att.Filename, att.Data)
	}

	if _, _, err := m.mg.Send(ctx, msg); err != nil {
		return fmt.Errorf("mailgun send to %s failed: %w", recipientEmail, err)
	}

	return nil
}

// TicketsHTML renders the purchase-confirmation body. The ticket PDFs ride
// along as attachments.
func (m *Mailer) TicketsHTML(recipientName string) string {
	first := recipientName
	if idx := strings.Index(recipientName, " "); idx > 0 {
		first = recipientName[:idx]
	}
	if first == "" {
		first = "there"
	}

	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; color: #333; padding: 20px;">
			<h2 style="color: #4CAF50;">Your Tickets</h2>
			<p>Hello %s,</p>
			<p>Thank you for your purchase. Please find your tickets attached to this email.</p>
			<p>If you have any issues, feel free to contact our support team.</p>
			<p>Thank you,<br>%s Team</p>
			<hr />
			<p style="font-size: 12px; color: #999;">This is an automated message. Please do not reply directly to this email.</p>
		</div>
	`, first, m.appName)
}
