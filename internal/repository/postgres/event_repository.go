package postgres

import (
	"context"
	"database/sql"

	"github.com/evently-hq/evently/internal/models"
)

type EventRepository interface {
	GetByID(ctx context.Context, eventID string) (*models.Event, error)
	IsOwner(ctx context.Context, eventID, userID string) (bool, error)
}

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) GetByID(ctx context.Context, eventID string) (*models.Event, error) {
	query := `SELECT id, owner_id, name, venue, starts_at, status, created_at FROM events WHERE id = $1`

	var e models.Event
	err := r.db.QueryRowContext(ctx, query, eventID).Scan(
		&e.ID,
		&e.OwnerID,
		&e.Name,
		&e.Venue,
		&e.StartsAt,
		&e.Status,
		&e.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &e, nil
}

func (r *eventRepository) IsOwner(ctx context.Context, eventID, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1 AND owner_id = $2)`

	var owned bool
	if err := r.db.QueryRowContext(ctx, query, eventID, userID).Scan(&owned); err != nil {
		return false, err
	}

	return owned, nil
}
