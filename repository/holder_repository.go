package repository

import (
	"context"
	"fmt"

	"governor/database"
	"governor/models"

	"github.com/jackc/pgx/v5"
)

// HolderRepository implements the service.HolderRepository interface. The
// holders table is both the token ledger balance store and the per-holder
// voting/dividend bookkeeping.
type HolderRepository struct {
	q queryable
}

// NewHolderRepository creates a new holder repository
func NewHolderRepository(db *database.DB) *HolderRepository {
	return &HolderRepository{q: db.Pool}
}

// newHolderRepositoryWithTx creates a new holder repository with a transaction
func newHolderRepositoryWithTx(tx queryable) *HolderRepository {
	return &HolderRepository{q: tx}
}

// Get retrieves a holder record, returning nil when unknown
func (r *HolderRepository) Get(ctx context.Context, address string) (*models.HolderRecord, error) {
	query := `
		SELECT address, balance, balance_snapshot, voting_changed_at, interest_changed_at, last_withdrawal_at
		FROM holders
		WHERE address = $1
	`

	var h models.HolderRecord
	err := r.q.QueryRow(ctx, query, address).Scan(
		&h.Address,
		&h.Balance,
		&h.BalanceSnapshot,
		&h.VotingChangedAt,
		&h.InterestChangedAt,
		&h.LastWithdrawalAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holder %s: %w", address, err)
	}

	return &h, nil
}

// Upsert writes the full holder record, creating it when absent
func (r *HolderRepository) Upsert(ctx context.Context, h *models.HolderRecord) error {
	query := `
		INSERT INTO holders (address, balance, balance_snapshot, voting_changed_at, interest_changed_at, last_withdrawal_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (address)
		DO UPDATE SET
			balance = EXCLUDED.balance,
			balance_snapshot = EXCLUDED.balance_snapshot,
			voting_changed_at = EXCLUDED.voting_changed_at,
			interest_changed_at = EXCLUDED.interest_changed_at,
			last_withdrawal_at = EXCLUDED.last_withdrawal_at
	`

	_, err := r.q.Exec(ctx, query,
		h.Address,
		h.Balance,
		h.BalanceSnapshot,
		h.VotingChangedAt,
		h.InterestChangedAt,
		h.LastWithdrawalAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert holder %s: %w", h.Address, err)
	}

	return nil
}

// Delete removes a holder record entirely (holders whose balance reached
// zero after an interest withdrawal)
func (r *HolderRepository) Delete(ctx context.Context, address string) error {
	query := `DELETE FROM holders WHERE address = $1`

	if _, err := r.q.Exec(ctx, query, address); err != nil {
		return fmt.Errorf("failed to delete holder %s: %w", address, err)
	}

	return nil
}

// TotalSupply sums all holder balances: the token total supply used for
// quorum and dividend math.
func (r *HolderRepository) TotalSupply(ctx context.Context) (int64, error) {
	query := `SELECT COALESCE(SUM(balance), 0) FROM holders`

	var total int64
	if err := r.q.QueryRow(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum total supply: %w", err)
	}

	return total, nil
}
