package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/evently-hq/evently/internal/models"
)

type TierRepository interface {
	CreateBatch(ctx context.Context, tiers []models.TicketTier) error
	GetByID(ctx context.Context, tierID string) (*models.TicketTier, error)
	ListByEvent(ctx context.Context, eventID string) ([]models.TicketTier, error)
	AdjustCapacity(ctx context.Context, tierID string, newTotal int) (int64, error)
	UpdatePrice(ctx context.Context, tierID string, price decimal.Decimal) (int64, error)
	Delete(ctx context.Context, tierID string) (int64, error)
}

type tierRepository struct {
	db *sql.DB
}

func NewTierRepository(db *sql.DB) TierRepository {
	return &tierRepository{db: db}
}

const tierColumns = `id, event_id, name, description, price, total_capacity, remaining, requires_attendee_name, created_at`

func scanTier(row interface{ Scan(...any) error }) (*models.TicketTier, error) {
	var t models.TicketTier
	err := row.Scan(
		&t.ID,
		&t.EventID,
		&t.Name,
		&t.Description,
		&t.Price,
		&t.TotalCapacity,
		&t.Remaining,
		&t.RequiresAttendeeName,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tierRepository) CreateBatch(ctx context.Context, tiers []models.TicketTier) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	query := `
	INSERT INTO ticket_tiers (id, event_id, name, description, price, total_capacity, remaining, requires_attendee_name, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare tier statement: %w", err)
	}

	defer stmt.Close()

	for _, t := range tiers {
		_, err := stmt.ExecContext(ctx, t.ID, t.EventID, t.Name, t.Description, t.Price, t.TotalCapacity, t.Remaining, t.RequiresAttendeeName, t.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert tier %s: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tier batch: %w", err)
	}

	return nil
}

func (r *tierRepository) GetByID(ctx context.Context, tierID string) (*models.TicketTier, error) {
	query := `SELECT ` + tierColumns + ` FROM ticket_tiers WHERE id = $1`

	tier, err := scanTier(r.db.QueryRowContext(ctx, query, tierID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return tier, nil
}

func (r *tierRepository) ListByEvent(ctx context.Context, eventID string) ([]models.TicketTier, error) {
	query := `SELECT ` + tierColumns + ` FROM ticket_tiers WHERE event_id = $1 ORDER BY created_at, name`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var tiers []models.TicketTier
	for rows.Next() {
		tier, err := scanTier(rows)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, *tier)
	}

	return tiers, rows.Err()
}

// AdjustCapacity moves total_capacity to newTotal and shifts remaining by
// the same delta, clamped at zero. The WHERE clause refuses any adjustment
// below units already sold; callers check the affected-row count.
func (r *tierRepository) AdjustCapacity(ctx context.Context, tierID string, newTotal int) (int64, error) {
	query := `
	UPDATE ticket_tiers
	SET remaining = GREATEST(remaining + ($1 - total_capacity), 0),
		total_capacity = $1
	WHERE id = $2 AND total_capacity - remaining <= $1
	`

	result, err := r.db.ExecContext(ctx, query, newTotal, tierID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// UpdatePrice only succeeds while no unit has been sold.
func (r *tierRepository) UpdatePrice(ctx context.Context, tierID string, price decimal.Decimal) (int64, error) {
	query := `
	UPDATE ticket_tiers
	SET price = $1
	WHERE id = $2 AND total_capacity = remaining
	`

	result, err := r.db.ExecContext(ctx, query, price, tierID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// Delete only succeeds while no unit has been sold.
func (r *tierRepository) Delete(ctx context.Context, tierID string) (int64, error) {
	query := `DELETE FROM ticket_tiers WHERE id = $1 AND total_capacity = remaining`

	result, err := r.db.ExecContext(ctx, query, tierID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
