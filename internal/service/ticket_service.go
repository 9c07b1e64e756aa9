package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/evently-hq/evently/internal/models"
	repo "github.com/evently-hq/evently/internal/repository/postgres"
	redisrepo "github.com/evently-hq/evently/internal/repository/redis"
	"github.com/evently-hq/evently/pkg/logger"
)

// TicketService administers an event's tiers. Mutations are guarded by the
// sales rules: price changes and deletion are rejected once a unit has been
// sold, capacity can never drop below units sold.
type TicketService interface {
	CreateTiers(ctx context.Context, userID, eventID string, inputs []TierInput) ([]models.TicketTier, error)
	ListEventTiers(ctx context.Context, eventID string) ([]models.TicketTier, error)
	AdjustCapacity(ctx context.Context, userID, tierID string, newTotal int) (*models.TicketTier, error)
	ChangePrice(ctx context.Context, userID, tierID string, price decimal.Decimal) (*models.TicketTier, error)
	DeleteTier(ctx context.Context, userID, tierID string) error
}

type ticketService struct {
	tierRepo  repo.TierRepository
	eventRepo repo.EventRepository
	cache     redisrepo.TierCache
	l         logger.Logger
}

func NewTicketService(
	tierRepo repo.TierRepository,
	eventRepo repo.EventRepository,
	cache redisrepo.TierCache,
	l logger.Logger,
) TicketService {
	return &ticketService{
		tierRepo:  tierRepo,
		eventRepo: eventRepo,
		cache:     cache,
		l:         l,
	}
}

func (s *ticketService) CreateTiers(ctx context.Context, userID, eventID string, inputs []TierInput) ([]models.TicketTier, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one tier is required", ErrValidation)
	}

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	if !event.IsOwnedBy(userID) {
		return nil, ErrUnauthorized
	}

	existing, err := s.tierRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]bool, len(existing))
	for _, t := range existing {
		taken[strings.ToLower(t.Name)] = true
	}

	now := time.Now()
	tiers := make([]models.TicketTier, 0, len(inputs))
	for _, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tier name is required", ErrValidation)
		}
		if in.TotalCapacity < 1 {
			return nil, fmt.Errorf("%w: tier %q capacity must be at least 1", ErrValidation, name)
		}
		if in.Price.IsNegative() {
			return nil, fmt.Errorf("%w: tier %q price must not be negative", ErrValidation, name)
		}
		if taken[strings.ToLower(name)] {
			return nil, fmt.Errorf("%w: duplicate tier name %q", ErrValidation, name)
		}
		taken[strings.ToLower(name)] = true

		tiers = append(tiers, models.TicketTier{
			ID:                   uuid.New().String(),
			EventID:              eventID,
			Name:                 name,
			Description:          in.Description,
			Price:                in.Price,
			TotalCapacity:        in.TotalCapacity,
			Remaining:            in.TotalCapacity,
			RequiresAttendeeName: in.RequiresAttendeeName,
			CreatedAt:            now,
		})
	}

	if err := s.tierRepo.CreateBatch(ctx, tiers); err != nil {
		return nil, err
	}

	s.invalidate(ctx, eventID)

	s.l.Infof(ctx, "Tiers created - event: %s, count: %d", eventID, len(tiers))

	return tiers, nil
}

func (s *ticketService) ListEventTiers(ctx context.Context, eventID string) ([]models.TicketTier, error) {
	cached, err := s.cache.Get(ctx, eventID)
	if err == nil {
		return cached, nil
	}
	if err != redis.Nil {
		s.l.Warnf(ctx, "ticketService.ListEventTiers: cache: %v", err)
	}

	tiers, err := s.tierRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if len(tiers) == 0 {
		if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, ErrEventNotFound
			}
			return nil, err
		}
	}

	if err := s.cache.Set(ctx, eventID, tiers); err != nil {
		s.l.Warnf(ctx, "ticketService.ListEventTiers: cache: %v", err)
	}

	return tiers, nil
}

func (s *ticketService) AdjustCapacity(ctx context.Context, userID, tierID string, newTotal int) (*models.TicketTier, error) {
	if newTotal < 1 {
		return nil, fmt.Errorf("%w: capacity must be at least 1", ErrValidation)
	}

	tier, err := s.ownedTier(ctx, userID, tierID)
	if err != nil {
		return nil, err
	}

	rows, err := s.tierRepo.AdjustCapacity(ctx, tierID, newTotal)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: capacity %d is below the %d units already sold",
			ErrValidation, newTotal, tier.UnitsSold())
	}

	s.invalidate(ctx, tier.EventID)

	updated, err := s.tierRepo.GetByID(ctx, tierID)
	if err != nil {
		return nil, err
	}

	s.l.Infof(ctx, "Tier capacity adjusted - tier: %s, total: %d -> %d, remaining: %d",
		tierID, tier.TotalCapacity, newTotal, updated.Remaining)

	return updated, nil
}

func (s *ticketService) ChangePrice(ctx context.Context, userID, tierID string, price decimal.Decimal) (*models.TicketTier, error) {
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrValidation)
	}

	tier, err := s.ownedTier(ctx, userID, tierID)
	if err != nil {
		return nil, err
	}

	rows, err := s.tierRepo.UpdatePrice(ctx, tierID, price)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: price cannot change after tickets have sold", ErrValidation)
	}

	s.invalidate(ctx, tier.EventID)

	updated, err := s.tierRepo.GetByID(ctx, tierID)
	if err != nil {
		return nil, err
	}

	s.l.Infof(ctx, "Tier price changed - tier: %s, price: %s", tierID, price.String())

	return updated, nil
}

func (s *ticketService) DeleteTier(ctx context.Context, userID, tierID string) error {
	tier, err := s.ownedTier(ctx, userID, tierID)
	if err != nil {
		return err
	}

	rows, err := s.tierRepo.Delete(ctx, tierID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: tier cannot be deleted after tickets have sold", ErrValidation)
	}

	s.invalidate(ctx, tier.EventID)

	s.l.Infof(ctx, "Tier deleted - tier: %s, event: %s", tierID, tier.EventID)

	return nil
}

func (s *ticketService) ownedTier(ctx context.Context, userID, tierID string) (*models.TicketTier, error) {
	tier, err := s.tierRepo.GetByID(ctx, tierID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTierNotFound
		}
		return nil, err
	}

	owned, err := s.eventRepo.IsOwner(ctx, tier.EventID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrUnauthorized
	}

	return tier, nil
}

func (s *ticketService) invalidate(ctx context.Context, eventID string) {
	if err := s.cache.Invalidate(ctx, eventID); err != nil {
		s.l.Warnf(ctx, "ticketService.invalidate: %v", err)
	}
}
