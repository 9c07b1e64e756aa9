package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/evently-hq/evently/internal/models"
	"github.com/evently-hq/evently/internal/monitoring"
	repo "github.com/evently-hq/evently/internal/repository/postgres"
	"github.com/evently-hq/evently/pkg/logger"
)

type RedemptionService interface {
	Scan(ctx context.Context, in ScanInput) (*models.Credential, error)
}

type redemptionService struct {
	credRepo  repo.CredentialRepository
	tierRepo  repo.TierRepository
	eventRepo repo.EventRepository
	l         logger.Logger
}

func NewRedemptionService(
	credRepo repo.CredentialRepository,
	tierRepo repo.TierRepository,
	eventRepo repo.EventRepository,
	l logger.Logger,
) RedemptionService {
	return &redemptionService{
		credRepo:  credRepo,
		tierRepo:  tierRepo,
		eventRepo: eventRepo,
		l:         l,
	}
}

// Scan redeems a credential at the gate. The atomic mark in the credential
// repository decides races between scanners; only one of two simultaneous
// scans of the same credential succeeds.
func (s *redemptionService) Scan(ctx context.Context, in ScanInput) (*models.Credential, error) {
	owned, err := s.eventRepo.IsOwner(ctx, in.EventID, in.ScannerID)
	if err != nil {
		monitoring.Scans.WithLabelValues(monitoring.ResultError).Inc()
		return nil, fmt.Errorf("failed to check event ownership: %w", err)
	}
	if !owned {
		monitoring.Scans.WithLabelValues(monitoring.ResultUnauthorized).Inc()
		return nil, ErrUnauthorized
	}

	cred, err := s.credRepo.GetByID(ctx, in.CredentialID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			monitoring.Scans.WithLabelValues(monitoring.ResultNotFound).Inc()
			return nil, ErrCredentialNotFound
		}
		monitoring.Scans.WithLabelValues(monitoring.ResultError).Inc()
		return nil, err
	}

	tier, err := s.tierRepo.GetByID(ctx, cred.TierID)
	if err != nil {
		monitoring.Scans.WithLabelValues(monitoring.ResultError).Inc()
		return nil, fmt.Errorf("failed to load tier for credential %s: %w", cred.ID, err)
	}

	if tier.EventID != in.EventID {
		monitoring.Scans.WithLabelValues(monitoring.ResultTierMismatch).Inc()
		return nil, ErrTierMismatch
	}

	if cred.IsScanned() {
		monitoring.Scans.WithLabelValues(monitoring.ResultAlreadyScanned).Inc()
		return nil, fmt.Errorf("%w: at %s", ErrAlreadyScanned, cred.ScannedAt.Format("15:04:05"))
	}

	rows, err := s.credRepo.MarkScanned(ctx, cred.ID)
	if err != nil {
		monitoring.Scans.WithLabelValues(monitoring.ResultError).Inc()
		return nil, fmt.Errorf("failed to mark credential scanned: %w", err)
	}
	if rows == 0 {
		// Another scanner won the race between our read and the update.
		monitoring.Scans.WithLabelValues(monitoring.ResultAlreadyScanned).Inc()
		return nil, ErrAlreadyScanned
	}

	scanned, err := s.credRepo.GetByID(ctx, cred.ID)
	if err != nil {
		monitoring.Scans.WithLabelValues(monitoring.ResultError).Inc()
		return nil, err
	}

	monitoring.Scans.WithLabelValues(monitoring.ResultOK).Inc()

	s.l.Infof(ctx, "Credential scanned - credential: %s, event: %s, scanner: %s",
		cred.ID, in.EventID, in.ScannerID)

	return scanned, nil
}
