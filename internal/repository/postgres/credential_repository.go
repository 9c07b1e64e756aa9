package postgres

import (
	"context"
	"database/sql"

	"github.com/evently-hq/evently/internal/models"
)

type CredentialRepository interface {
	GetByID(ctx context.Context, credentialID string) (*models.Credential, error)
	FindByIntent(ctx context.Context, intentID string) ([]models.Credential, error)
	MarkScanned(ctx context.Context, credentialID string) (int64, error)
}

type credentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

const credentialColumns = `id, intent_id, tier_id, attendee_name, issued_at, scanned_at`

func scanCredential(row interface{ Scan(...any) error }) (*models.Credential, error) {
	var c models.Credential
	var scannedAt sql.NullTime

	err := row.Scan(&c.ID, &c.IntentID, &c.TierID, &c.AttendeeName, &c.IssuedAt, &scannedAt)
	if err != nil {
		return nil, err
	}

	if scannedAt.Valid {
		c.ScannedAt = &scannedAt.Time
	}

	return &c, nil
}

func (r *credentialRepository) GetByID(ctx context.Context, credentialID string) (*models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1`

	cred, err := scanCredential(r.db.QueryRowContext(ctx, query, credentialID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return cred, nil
}

func (r *credentialRepository) FindByIntent(ctx context.Context, intentID string) ([]models.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE intent_id = $1 ORDER BY issued_at, id`

	rows, err := r.db.QueryContext(ctx, query, intentID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var creds []models.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, *cred)
	}

	return creds, rows.Err()
}

// MarkScanned is the redemption compare-and-set: the WHERE clause only
// matches while scanned_at is still null, so concurrent gate scanners race
// on the row and exactly one wins.
func (r *credentialRepository) MarkScanned(ctx context.Context, credentialID string) (int64, error) {
	query := `UPDATE credentials SET scanned_at = now() WHERE id = $1 AND scanned_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, credentialID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
