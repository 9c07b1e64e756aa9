package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/evently-hq/evently/internal/models"
)

// CredentialBuilder turns freshly confirmed intents into credential rows.
// It runs inside the confirmation transaction so issuance stays atomic with
// the stock decrement.
type CredentialBuilder func(intents []models.PurchaseIntent) []models.Credential

type ConfirmOutcome struct {
	Intents     []models.PurchaseIntent
	Credentials []models.Credential
	// Replayed is true when the reference was already confirmed and the
	// previously issued credentials were returned unchanged.
	Replayed bool
}

type IntentRepository interface {
	Create(ctx context.Context, intent *models.PurchaseIntent) error
	FindByReference(ctx context.Context, reference string) ([]models.PurchaseIntent, error)
	FindByBuyer(ctx context.Context, buyerID string) ([]models.PurchaseIntent, error)
	ConfirmReference(ctx context.Context, reference string, paidAt time.Time, build CredentialBuilder) (*ConfirmOutcome, error)
}

type intentRepository struct {
	db *sql.DB
}

func NewIntentRepository(db *sql.DB) IntentRepository {
	return &intentRepository{db: db}
}

const intentColumns = `id, tier_id, buyer_id, buyer_email, buyer_name, quantity, attendee_names, gateway_reference, state, paid_at, created_at`

func scanIntent(row interface{ Scan(...any) error }) (*models.PurchaseIntent, error) {
	var in models.PurchaseIntent
	var names pq.StringArray
	var paidAt sql.NullTime

	err := row.Scan(
		&in.ID,
		&in.TierID,
		&in.BuyerID,
		&in.BuyerEmail,
		&in.BuyerName,
		&in.Quantity,
		&names,
		&in.GatewayReference,
		&in.State,
		&paidAt,
		&in.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	in.AttendeeNames = []string(names)
	if paidAt.Valid {
		in.PaidAt = &paidAt.Time
	}

	return &in, nil
}

func (r *intentRepository) Create(ctx context.Context, intent *models.PurchaseIntent) error {
	query := `
	INSERT INTO purchase_intents (id, tier_id, buyer_id, buyer_email, buyer_name, quantity, attendee_names, gateway_reference, state, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		intent.ID,
		intent.TierID,
		intent.BuyerID,
		intent.BuyerEmail,
		intent.BuyerName,
		intent.Quantity,
		pq.Array(intent.AttendeeNames),
		intent.GatewayReference,
		intent.State,
		intent.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert purchase intent: %w", err)
	}

	return nil
}

func (r *intentRepository) FindByReference(ctx context.Context, reference string) ([]models.PurchaseIntent, error) {
	query := `SELECT ` + intentColumns + ` FROM purchase_intents WHERE gateway_reference = $1 ORDER BY created_at, id`
	return r.queryIntents(ctx, r.db, query, reference)
}

func (r *intentRepository) FindByBuyer(ctx context.Context, buyerID string) ([]models.PurchaseIntent, error) {
	query := `SELECT ` + intentColumns + ` FROM purchase_intents WHERE buyer_id = $1 ORDER BY created_at DESC`
	return r.queryIntents(ctx, r.db, query, buyerID)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *intentRepository) queryIntents(ctx context.Context, q queryer, query string, args ...any) ([]models.PurchaseIntent, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var intents []models.PurchaseIntent
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, *intent)
	}

	return intents, rows.Err()
}

// ConfirmReference applies a captured payment to its intents in one
// transaction: lock the intent rows, decrement tier stock conditionally,
// flip the intents to CONFIRMED and insert one credential per unit. The row
// locks make concurrent webhooks for the same reference collapse to one
// winner; replayers observe the committed CONFIRMED state and get the
// existing credentials back.
func (r *intentRepository) ConfirmReference(ctx context.Context, reference string, paidAt time.Time, build CredentialBuilder) (*ConfirmOutcome, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer tx.Rollback()

	lockQuery := `SELECT ` + intentColumns + ` FROM purchase_intents WHERE gateway_reference = $1 ORDER BY created_at, id FOR UPDATE`

	rows, err := tx.QueryContext(ctx, lockQuery, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to lock intents: %w", err)
	}

	var all []models.PurchaseIntent
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		all = append(all, *intent)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(all) == 0 {
		return nil, ErrNoIntents
	}

	var pending []models.PurchaseIntent
	for _, in := range all {
		if in.State == models.IntentStatePending {
			pending = append(pending, in)
		}
	}

	// Idempotent replay: everything already confirmed, hand back the
	// credentials issued by the first delivery.
	if len(pending) == 0 {
		creds, err := r.credentialsForIntents(ctx, tx, all)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &ConfirmOutcome{Intents: all, Credentials: creds, Replayed: true}, nil
	}

	// Stock decrement per tier: a conditional update checked by affected-row
	// count, never read-then-write.
	quantities := make(map[string]int)
	var tierOrder []string
	for _, in := range pending {
		if _, seen := quantities[in.TierID]; !seen {
			tierOrder = append(tierOrder, in.TierID)
		}
		quantities[in.TierID] += in.Quantity
	}

	decrement := `UPDATE ticket_tiers SET remaining = remaining - $1 WHERE id = $2 AND remaining >= $1`
	for _, tierID := range tierOrder {
		result, err := tx.ExecContext(ctx, decrement, quantities[tierID], tierID)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement tier %s: %w", tierID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, fmt.Errorf("tier %s: %w", tierID, ErrInsufficientRemaining)
		}
	}

	ids := make([]string, 0, len(pending))
	for i := range pending {
		pending[i].State = models.IntentStateConfirmed
		pending[i].PaidAt = &paidAt
		ids = append(ids, pending[i].ID)
	}

	confirm := `UPDATE purchase_intents SET state = $1, paid_at = $2 WHERE id = ANY($3)`
	if _, err := tx.ExecContext(ctx, confirm, models.IntentStateConfirmed, paidAt, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to confirm intents: %w", err)
	}

	credentials := build(pending)

	insert := `
	INSERT INTO credentials (id, intent_id, tier_id, attendee_name, issued_at)
	VALUES ($1, $2, $3, $4, $5)
	`

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare credential statement: %w", err)
	}

	defer stmt.Close()

	for _, c := range credentials {
		if _, err := stmt.ExecContext(ctx, c.ID, c.IntentID, c.TierID, c.AttendeeName, c.IssuedAt); err != nil {
			return nil, fmt.Errorf("failed to insert credential for intent %s: %w", c.IntentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit confirmation: %w", err)
	}

	return &ConfirmOutcome{Intents: pending, Credentials: credentials}, nil
}

func (r *intentRepository) credentialsForIntents(ctx context.Context, tx *sql.Tx, intents []models.PurchaseIntent) ([]models.Credential, error) {
	ids := make([]string, 0, len(intents))
	for _, in := range intents {
		ids = append(ids, in.ID)
	}

	query := `
	SELECT id, intent_id, tier_id, attendee_name, issued_at, scanned_at
	FROM credentials
	WHERE intent_id = ANY($1)
	ORDER BY issued_at, id
	`

	rows, err := tx.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var creds []models.Credential
	for rows.Next() {
		var c models.Credential
		var scannedAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.IntentID, &c.TierID, &c.AttendeeName, &c.IssuedAt, &scannedAt); err != nil {
			return nil, err
		}
		if scannedAt.Valid {
			c.ScannedAt = &scannedAt.Time
		}
		creds = append(creds, c)
	}

	return creds, rows.Err()
}
