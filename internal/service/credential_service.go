package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/evently-hq/evently/internal/kafka"
	"github.com/evently-hq/evently/internal/models"
	"github.com/evently-hq/evently/internal/monitoring"
	repo "github.com/evently-hq/evently/internal/repository/postgres"
	"github.com/evently-hq/evently/pkg/logger"
	"github.com/evently-hq/evently/pkg/mailer"
	"github.com/evently-hq/evently/pkg/ticketpdf"
	"github.com/evently-hq/evently/pkg/util"
)

// renderConcurrency bounds parallel PDF rendering for one delivery.
const renderConcurrency = 4

type CredentialService interface {
	BuildCredentials(intents []models.PurchaseIntent) []models.Credential
	DeliverCredentials(ctx context.Context, intents []models.PurchaseIntent, credentials []models.Credential)
	GenerateScanToken(credential models.Credential) (string, error)
	ParseScanToken(token string) (*ScanClaims, error)
}

type credentialService struct {
	tierRepo  repo.TierRepository
	eventRepo repo.EventRepository
	delivery  DeliveryService
	render    RenderFunc
	prod      kafka.Producer
	secret    string
	appName   string
	l         logger.Logger
}

func NewCredentialService(
	tierRepo repo.TierRepository,
	eventRepo repo.EventRepository,
	delivery DeliveryService,
	render RenderFunc,
	prod kafka.Producer,
	secret string,
	appName string,
	l logger.Logger,
) CredentialService {
	if render == nil {
		render = ticketpdf.Render
	}

	return &credentialService{
		tierRepo:  tierRepo,
		eventRepo: eventRepo,
		delivery:  delivery,
		render:    render,
		prod:      prod,
		secret:    secret,
		appName:   appName,
		l:         l,
	}
}

// BuildCredentials produces exactly one credential per purchased unit, with
// attendee names assigned positionally. It runs inside the confirmation
// transaction via the intent repository, so it must stay side-effect free.
func (s *credentialService) BuildCredentials(intents []models.PurchaseIntent) []models.Credential {
	now := time.Now()

	var credentials []models.Credential
	for _, intent := range intents {
		for unit := 0; unit < intent.Quantity; unit++ {
			credentials = append(credentials, models.Credential{
				ID:           uuid.New().String(),
				IntentID:     intent.ID,
				TierID:       intent.TierID,
				AttendeeName: intent.AttendeeName(unit),
				IssuedAt:     now,
			})
		}
	}

	return credentials
}

// DeliverCredentials renders and mails the ticket artifacts after the
// confirmation has committed. Failures are logged and counted; the payment
// is already durable, so nothing here may surface as a confirmation error.
func (s *credentialService) DeliverCredentials(ctx context.Context, intents []models.PurchaseIntent, credentials []models.Credential) {
	byIntent := make(map[string][]models.Credential)
	for _, c := range credentials {
		byIntent[c.IntentID] = append(byIntent[c.IntentID], c)
	}

	for _, intent := range intents {
		creds := byIntent[intent.ID]
		if len(creds) == 0 {
			continue
		}

		if err := s.deliverIntent(ctx, intent, creds); err != nil {
			monitoring.Deliveries.WithLabelValues(monitoring.ResultError).Inc()
			s.l.Errorf(ctx, "credentialService.DeliverCredentials: intent %s: %v", intent.ID, err)
			continue
		}

		monitoring.Deliveries.WithLabelValues(monitoring.ResultOK).Inc()
	}
}

func (s *credentialService) deliverIntent(ctx context.Context, intent models.PurchaseIntent, credentials []models.Credential) error {
	tier, err := s.tierRepo.GetByID(ctx, intent.TierID)
	if err != nil {
		return fmt.Errorf("failed to load tier: %w", err)
	}

	event, err := s.eventRepo.GetByID(ctx, tier.EventID)
	if err != nil {
		return fmt.Errorf("failed to load event: %w", err)
	}

	attachments := make([]mailer.Attachment, len(credentials))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(renderConcurrency)

	for i, cred := range credentials {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			token, err := s.GenerateScanToken(cred)
			if err != nil {
				return err
			}

			pdf, err := s.render(ticketpdf.Artifact{
				EventName:    event.Name,
				EventVenue:   event.Venue,
				EventDate:    util.FormatDateTime(event.StartsAt),
				TierName:     tier.Name,
				AttendeeName: cred.AttendeeName,
				CredentialID: cred.ID,
				ScanPayload:  token,
			})
			if err != nil {
				return err
			}

			attachments[i] = mailer.Attachment{
				Filename: ticketFilename(event.Name, cred.ID),
				Data:     pdf,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to render tickets: %w", err)
	}

	html := s.delivery.TicketsHTML(intent.BuyerName)
	subject := fmt.Sprintf("%s: Your Tickets", s.appName)

	if err := s.delivery.Deliver(ctx, intent.BuyerEmail, intent.BuyerName, subject, html, attachments); err != nil {
		return err
	}

	if s.prod != nil {
		for _, cred := range credentials {
			if err := s.prod.PublishCredentialIssued(ctx, kafka.CredentialIssuedEvent{
				CredentialID: cred.ID,
				IntentID:     cred.IntentID,
				TierID:       cred.TierID,
				AttendeeName: cred.AttendeeName,
				IssuedAt:     cred.IssuedAt,
			}); err != nil {
				// Log error but don't fail the delivery
				s.l.Errorf(ctx, "credentialService.deliverIntent: publish credential issued: %v", err)
			}
		}
	}

	s.l.Infof(ctx, "Tickets delivered - intent: %s, credentials: %d, recipient: %s",
		intent.ID, len(credentials), intent.BuyerEmail)

	return nil
}

func ticketFilename(eventName, credentialID string) string {
	base := "Ticket_" + strings.ReplaceAll(eventName, " ", "_")
	suffix := strings.ToUpper(strings.ReplaceAll(credentialID, "-", ""))
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return fmt.Sprintf("%s_%s.pdf", base, suffix)
}

// GenerateScanToken signs the QR payload so gate scanners can reject forged
// tickets without a database round trip.
func (s *credentialService) GenerateScanToken(credential models.Credential) (string, error) {
	claims := jwt.MapClaims{
		"tier_id":       credential.TierID,
		"credential_id": credential.ID,
		"iat":           time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign scan token: %w", err)
	}

	return tokenStr, nil
}

func (s *credentialService) ParseScanToken(token string) (*ScanClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid scan token", ErrValidation)
	}

	tierID, ok := claims["tier_id"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: scan token missing tier_id", ErrValidation)
	}

	credentialID, ok := claims["credential_id"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: scan token missing credential_id", ErrValidation)
	}

	return &ScanClaims{TierID: tierID, CredentialID: credentialID}, nil
}
