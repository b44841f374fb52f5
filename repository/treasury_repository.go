package repository

import (
	"context"
	"fmt"

	"governor/database"
	"governor/models"
)

// TreasuryRepository implements the service.TreasuryRepository interface
// over the single-row treasury table
type TreasuryRepository struct {
	q queryable
}

// NewTreasuryRepository creates a new treasury repository
func NewTreasuryRepository(db *database.DB) *TreasuryRepository {
	return &TreasuryRepository{q: db.Pool}
}

// newTreasuryRepositoryWithTx creates a new treasury repository with a transaction
func newTreasuryRepositoryWithTx(tx queryable) *TreasuryRepository {
	return &TreasuryRepository{q: tx}
}

const treasuryColumns = `budget_used, dao_funds, undistributed, interest_total, interest_remaining, last_epoch_at, epoch_length_seconds`

// Get reads the treasury counters
func (r *TreasuryRepository) Get(ctx context.Context) (*models.Treasury, error) {
	query := `SELECT ` + treasuryColumns + ` FROM treasury WHERE id = 1`
	return r.scan(ctx, query)
}

// GetForUpdate reads the treasury counters under a row lock. Taking this
// lock at the start of every mutating operation serializes them: no
// operation observes a partially applied effect of another.
func (r *TreasuryRepository) GetForUpdate(ctx context.Context) (*models.Treasury, error) {
	query := `SELECT ` + treasuryColumns + ` FROM treasury WHERE id = 1 FOR UPDATE`
	return r.scan(ctx, query)
}

func (r *TreasuryRepository) scan(ctx context.Context, query string) (*models.Treasury, error) {
	var t models.Treasury
	err := r.q.QueryRow(ctx, query).Scan(
		&t.BudgetUsed,
		&t.DAOFunds,
		&t.Undistributed,
		&t.InterestTotal,
		&t.InterestRemaining,
		&t.LastEpochAt,
		&t.EpochLengthSeconds,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get treasury: %w", err)
	}

	return &t, nil
}

// Update persists the treasury counters
func (r *TreasuryRepository) Update(ctx context.Context, t *models.Treasury) error {
	query := `
		UPDATE treasury
		SET budget_used = $1, dao_funds = $2, undistributed = $3,
		    interest_total = $4, interest_remaining = $5,
		    last_epoch_at = $6, epoch_length_seconds = $7
		WHERE id = 1
	`

	tag, err := r.q.Exec(ctx, query,
		t.BudgetUsed,
		t.DAOFunds,
		t.Undistributed,
		t.InterestTotal,
		t.InterestRemaining,
		t.LastEpochAt,
		t.EpochLengthSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to update treasury: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("treasury row not found for update")
	}

	return nil
}
