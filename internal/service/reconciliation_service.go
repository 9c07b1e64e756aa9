package service

import (
	"context"

	"github.com/evently-hq/evently/internal/models"
	repo "github.com/evently-hq/evently/internal/repository/postgres"
	"github.com/evently-hq/evently/pkg/logger"
)

// ReconciliationService exposes the operator workflow for payments that were
// captured but could not be honored with stock. Refunds happen out of band;
// resolving a record only marks the refund as done.
type ReconciliationService interface {
	ListOpen(ctx context.Context) ([]models.ReconciliationRecord, error)
	Resolve(ctx context.Context, recordID string) error
}

type reconciliationService struct {
	reconRepo repo.ReconciliationRepository
	l         logger.Logger
}

func NewReconciliationService(reconRepo repo.ReconciliationRepository, l logger.Logger) ReconciliationService {
	return &reconciliationService{
		reconRepo: reconRepo,
		l:         l,
	}
}

func (s *reconciliationService) ListOpen(ctx context.Context) ([]models.ReconciliationRecord, error) {
	return s.reconRepo.ListOpen(ctx)
}

func (s *reconciliationService) Resolve(ctx context.Context, recordID string) error {
	rows, err := s.reconRepo.Resolve(ctx, recordID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrReconciliationNotFound
	}

	s.l.Infof(ctx, "Reconciliation record resolved - record: %s", recordID)

	return nil
}
