package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/evently-hq/evently/internal/kafka"
	"github.com/evently-hq/evently/internal/models"
	"github.com/evently-hq/evently/internal/monitoring"
	repo "github.com/evently-hq/evently/internal/repository/postgres"
	redisrepo "github.com/evently-hq/evently/internal/repository/redis"
	"github.com/evently-hq/evently/pkg/logger"
)

type ReservationService interface {
	Reserve(ctx context.Context, in ReserveInput) (*ReserveOutput, error)
	Confirm(ctx context.Context, gatewayReference string, paidAt time.Time) ([]models.Credential, error)
	ListBuyerIntents(ctx context.Context, buyerID string) ([]models.PurchaseIntent, error)
}

type reservationService struct {
	tierRepo    repo.TierRepository
	intentRepo  repo.IntentRepository
	reconRepo   repo.ReconciliationRepository
	cache       redisrepo.TierCache
	credentials CredentialService
	gateway     PaymentGateway
	prod        kafka.Producer
	l           logger.Logger

	// deliveryTimeout bounds the detached post-commit rendering/mailing.
	deliveryTimeout time.Duration
}

func NewReservationService(
	tierRepo repo.TierRepository,
	intentRepo repo.IntentRepository,
	reconRepo repo.ReconciliationRepository,
	cache redisrepo.TierCache,
	credentials CredentialService,
	gateway PaymentGateway,
	prod kafka.Producer,
	deliveryTimeout time.Duration,
	l logger.Logger,
) ReservationService {
	if deliveryTimeout <= 0 {
		deliveryTimeout = time.Minute
	}

	return &reservationService{
		tierRepo:        tierRepo,
		intentRepo:      intentRepo,
		reconRepo:       reconRepo,
		cache:           cache,
		credentials:     credentials,
		gateway:         gateway,
		prod:            prod,
		deliveryTimeout: deliveryTimeout,
		l:               l,
	}
}

// Reserve pre-checks availability and records a PENDING intent bound to a
// fresh gateway reference. Capacity is not committed here: payment
// completion is the authoritative stock-consuming event, so an abandoned
// checkout never strands inventory.
func (s *reservationService) Reserve(ctx context.Context, in ReserveInput) (*ReserveOutput, error) {
	if in.Quantity < 1 {
		monitoring.Reservations.WithLabelValues(monitoring.ResultValidation).Inc()
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	tier, err := s.tierRepo.GetByID(ctx, in.TierID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			monitoring.Reservations.WithLabelValues(monitoring.ResultNotFound).Inc()
			return nil, ErrTierNotFound
		}
		return nil, fmt.Errorf("failed to load tier: %w", err)
	}

	if tier.RequiresAttendeeName {
		if len(in.AttendeeNames) != in.Quantity {
			monitoring.Reservations.WithLabelValues(monitoring.ResultValidation).Inc()
			return nil, fmt.Errorf("%w: tier %q requires %d attendee names, got %d",
				ErrValidation, tier.Name, in.Quantity, len(in.AttendeeNames))
		}
	} else if len(in.AttendeeNames) != 0 && len(in.AttendeeNames) != in.Quantity {
		monitoring.Reservations.WithLabelValues(monitoring.ResultValidation).Inc()
		return nil, fmt.Errorf("%w: attendee names must be empty or match quantity", ErrValidation)
	}

	if tier.Remaining < in.Quantity {
		monitoring.Reservations.WithLabelValues(monitoring.ResultInsufficientStock).Inc()
		return nil, fmt.Errorf("%w: %d remaining, %d requested", ErrInsufficientStock, tier.Remaining, in.Quantity)
	}

	amount := tier.Price.Mul(decimal.NewFromInt(int64(in.Quantity)))

	session, err := s.gateway.InitializePayment(ctx, in.BuyerEmail, amount)
	if err != nil {
		s.l.Errorf(ctx, "reservationService.Reserve: gateway: %v", err)
		monitoring.Reservations.WithLabelValues(monitoring.ResultError).Inc()
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	intent := &models.PurchaseIntent{
		ID:               uuid.New().String(),
		TierID:           tier.ID,
		BuyerID:          in.BuyerID,
		BuyerEmail:       in.BuyerEmail,
		BuyerName:        in.BuyerName,
		Quantity:         in.Quantity,
		AttendeeNames:    in.AttendeeNames,
		GatewayReference: session.Reference,
		State:            models.IntentStatePending,
		CreatedAt:        time.Now(),
	}

	if err := s.intentRepo.Create(ctx, intent); err != nil {
		monitoring.Reservations.WithLabelValues(monitoring.ResultError).Inc()
		return nil, err
	}

	monitoring.Reservations.WithLabelValues(monitoring.ResultOK).Inc()

	s.l.Infof(ctx, "Purchase intent created - intent: %s, tier: %s, quantity: %d, reference: %s",
		intent.ID, tier.ID, in.Quantity, session.Reference)

	return &ReserveOutput{
		Intent:           intent,
		GatewayReference: session.Reference,
		PaymentURL:       session.AuthorizationURL,
	}, nil
}

// Confirm applies a captured payment to the intents sharing the gateway
// reference. It is idempotent under at-least-once webhook delivery: a
// replay returns the previously issued credentials and decrements nothing.
func (s *reservationService) Confirm(ctx context.Context, gatewayReference string, paidAt time.Time) ([]models.Credential, error) {
	outcome, err := s.intentRepo.ConfirmReference(ctx, gatewayReference, paidAt, s.credentials.BuildCredentials)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNoIntents):
			monitoring.Confirmations.WithLabelValues(monitoring.ResultNotFound).Inc()
			return nil, ErrIntentNotFound
		case errors.Is(err, repo.ErrInsufficientRemaining):
			return nil, s.flagForReconciliation(ctx, gatewayReference, paidAt)
		default:
			monitoring.Confirmations.WithLabelValues(monitoring.ResultError).Inc()
			return nil, fmt.Errorf("failed to confirm reference %s: %w", gatewayReference, err)
		}
	}

	if outcome.Replayed {
		monitoring.Confirmations.WithLabelValues(monitoring.ResultReplayed).Inc()
		s.l.Infof(ctx, "Confirmation replayed - reference: %s, credentials: %d",
			gatewayReference, len(outcome.Credentials))
		return outcome.Credentials, nil
	}

	monitoring.Confirmations.WithLabelValues(monitoring.ResultOK).Inc()

	s.l.Infof(ctx, "Payment confirmed - reference: %s, intents: %d, credentials: %d",
		gatewayReference, len(outcome.Intents), len(outcome.Credentials))

	s.invalidateTierCaches(ctx, outcome.Intents)
	s.publishConfirmed(ctx, outcome.Intents, paidAt)

	// Rendering and mail delivery never join the confirmation transaction;
	// a failure here is retried out-of-band, not rolled back.
	intents := outcome.Intents
	credentials := outcome.Credentials
	go func() {
		dctx, cancel := context.WithTimeout(context.Background(), s.deliveryTimeout)
		defer cancel()
		s.credentials.DeliverCredentials(dctx, intents, credentials)
	}()

	return outcome.Credentials, nil
}

func (s *reservationService) ListBuyerIntents(ctx context.Context, buyerID string) ([]models.PurchaseIntent, error) {
	return s.intentRepo.FindByBuyer(ctx, buyerID)
}

// flagForReconciliation records a captured payment that lost the capacity
// race so an operator can refund it. The record is the durable trail; the
// Kafka event and metrics are signals on top.
func (s *reservationService) flagForReconciliation(ctx context.Context, gatewayReference string, paidAt time.Time) error {
	monitoring.Confirmations.WithLabelValues(monitoring.ResultInsufficientStock).Inc()

	intents, err := s.intentRepo.FindByReference(ctx, gatewayReference)
	if err != nil || len(intents) == 0 {
		s.l.Errorf(ctx, "reservationService.flagForReconciliation: load intents for %s: %v", gatewayReference, err)
		return fmt.Errorf("%w: reference %s (reconciliation record could not be written)", ErrInsufficientStock, gatewayReference)
	}

	quantities := make(map[string]int)
	var tierOrder []string
	for _, in := range intents {
		if in.State != models.IntentStatePending {
			continue
		}
		if _, seen := quantities[in.TierID]; !seen {
			tierOrder = append(tierOrder, in.TierID)
		}
		quantities[in.TierID] += in.Quantity
	}

	for _, tierID := range tierOrder {
		rec := &models.ReconciliationRecord{
			ID:               uuid.New().String(),
			GatewayReference: gatewayReference,
			TierID:           tierID,
			Quantity:         quantities[tierID],
			CapturedAt:       paidAt,
			Reason:           models.ReconciliationReasonInsufficientStock,
			FlaggedAt:        time.Now(),
		}

		inserted, err := s.reconRepo.Create(ctx, rec)
		if err != nil {
			s.l.Errorf(ctx, "reservationService.flagForReconciliation: %v", err)
			continue
		}
		if inserted == 0 {
			// Redelivered webhook: the record and its event already exist.
			s.l.Infof(ctx, "Reconciliation already flagged - reference: %s, tier: %s", gatewayReference, tierID)
			continue
		}

		monitoring.ReconciliationsFlagged.Inc()

		s.l.Warnf(ctx, "Payment flagged for manual refund - reference: %s, tier: %s, quantity: %d",
			gatewayReference, tierID, quantities[tierID])

		if s.prod != nil {
			if err := s.prod.PublishPaymentFlagged(ctx, kafka.PaymentFlaggedEvent{
				ReconciliationID: rec.ID,
				GatewayReference: rec.GatewayReference,
				TierID:           rec.TierID,
				Quantity:         rec.Quantity,
				Reason:           rec.Reason,
				FlaggedAt:        rec.FlaggedAt,
			}); err != nil {
				// Log error but don't fail the request
				s.l.Errorf(ctx, "reservationService.flagForReconciliation: publish: %v", err)
			}
		}
	}

	return fmt.Errorf("%w: reference %s flagged for manual reconciliation", ErrInsufficientStock, gatewayReference)
}

func (s *reservationService) invalidateTierCaches(ctx context.Context, intents []models.PurchaseIntent) {
	seen := make(map[string]bool)
	for _, in := range intents {
		if seen[in.TierID] {
			continue
		}
		seen[in.TierID] = true

		tier, err := s.tierRepo.GetByID(ctx, in.TierID)
		if err != nil {
			s.l.Warnf(ctx, "reservationService.invalidateTierCaches: %v", err)
			continue
		}

		if err := s.cache.Invalidate(ctx, tier.EventID); err != nil {
			s.l.Warnf(ctx, "reservationService.invalidateTierCaches: %v", err)
		}
	}
}

func (s *reservationService) publishConfirmed(ctx context.Context, intents []models.PurchaseIntent, paidAt time.Time) {
	if s.prod == nil {
		return
	}

	for _, in := range intents {
		if err := s.prod.PublishPurchaseConfirmed(ctx, kafka.PurchaseConfirmedEvent{
			IntentID:         in.ID,
			TierID:           in.TierID,
			BuyerID:          in.BuyerID,
			GatewayReference: in.GatewayReference,
			Quantity:         in.Quantity,
			PaidAt:           paidAt,
		}); err != nil {
			// Log error but don't fail the request
			s.l.Errorf(ctx, "reservationService.publishConfirmed: %v", err)
		}
	}
}
