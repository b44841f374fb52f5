package repository

import (
	"context"
	"fmt"

	"governor/database"
	"governor/models"
)

// PayoutRepository implements the service.PayoutRepository interface.
// Payouts are an append-only audit log of funds leaving the treasury.
type PayoutRepository struct {
	q queryable
}

// NewPayoutRepository creates a new payout repository
func NewPayoutRepository(db *database.DB) *PayoutRepository {
	return &PayoutRepository{q: db.Pool}
}

// newPayoutRepositoryWithTx creates a new payout repository with a transaction
func newPayoutRepositoryWithTx(tx queryable) *PayoutRepository {
	return &PayoutRepository{q: tx}
}

// Record appends a payout and fills in its ID and timestamp
func (r *PayoutRepository) Record(ctx context.Context, p *models.Payout) error {
	query := `
		INSERT INTO payouts (recipient, amount, reason, reference_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, p.Recipient, p.Amount, p.Reason, p.ReferenceID).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record payout to %s: %w", p.Recipient, err)
	}

	return nil
}

// ListByRecipient returns a recipient's payouts, most recent first
func (r *PayoutRepository) ListByRecipient(ctx context.Context, recipient string, limit int) ([]*models.Payout, error) {
	query := `
		SELECT id, recipient, amount, reason, reference_id, created_at
		FROM payouts
		WHERE recipient = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, recipient, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts for %s: %w", recipient, err)
	}
	defer rows.Close()

	var payouts []*models.Payout
	for rows.Next() {
		var p models.Payout
		if err := rows.Scan(&p.ID, &p.Recipient, &p.Amount, &p.Reason, &p.ReferenceID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		payouts = append(payouts, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payouts: %w", err)
	}

	return payouts, nil
}
