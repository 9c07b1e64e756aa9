package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/evently-hq/evently/internal/models"
)

type ReconciliationRepository interface {
	Create(ctx context.Context, rec *models.ReconciliationRecord) (int64, error)
	ListOpen(ctx context.Context) ([]models.ReconciliationRecord, error)
	Resolve(ctx context.Context, recordID string) (int64, error)
}

type reconciliationRepository struct {
	db *sql.DB
}

func NewReconciliationRepository(db *sql.DB) ReconciliationRepository {
	return &reconciliationRepository{db: db}
}

// Create inserts at most one record per (gateway_reference, tier_id): a
// redelivered webhook for an already-flagged payment affects zero rows, so
// callers can tell a fresh flag from a duplicate.
func (r *reconciliationRepository) Create(ctx context.Context, rec *models.ReconciliationRecord) (int64, error) {
	query := `
	INSERT INTO reconciliation_records (id, gateway_reference, tier_id, quantity, captured_at, reason, flagged_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (gateway_reference, tier_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.GatewayReference,
		rec.TierID,
		rec.Quantity,
		rec.CapturedAt,
		rec.Reason,
		rec.FlaggedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert reconciliation record: %w", err)
	}

	return result.RowsAffected()
}

func (r *reconciliationRepository) ListOpen(ctx context.Context) ([]models.ReconciliationRecord, error) {
	query := `
	SELECT id, gateway_reference, tier_id, quantity, captured_at, reason, flagged_at, resolved_at
	FROM reconciliation_records
	WHERE resolved_at IS NULL
	ORDER BY flagged_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var records []models.ReconciliationRecord
	for rows.Next() {
		var rec models.ReconciliationRecord
		var resolvedAt sql.NullTime
		if err := rows.Scan(&rec.ID, &rec.GatewayReference, &rec.TierID, &rec.Quantity, &rec.CapturedAt, &rec.Reason, &rec.FlaggedAt, &resolvedAt); err != nil {
			return nil, err
		}
		if resolvedAt.Valid {
			rec.ResolvedAt = &resolvedAt.Time
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (r *reconciliationRepository) Resolve(ctx context.Context, recordID string) (int64, error) {
	query := `UPDATE reconciliation_records SET resolved_at = now() WHERE id = $1 AND resolved_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, recordID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
