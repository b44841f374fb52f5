package repository

import (
	"context"
	"fmt"

	"governor/database"
	"governor/models"

	"github.com/jackc/pgx/v5"
)

// VoteRepository implements the service.VoteRepository interface
type VoteRepository struct {
	q queryable
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *database.DB) *VoteRepository {
	return &VoteRepository{q: db.Pool}
}

// newVoteRepositoryWithTx creates a new vote repository with a transaction
func newVoteRepositoryWithTx(tx queryable) *VoteRepository {
	return &VoteRepository{q: tx}
}

// Get retrieves the cumulative vote record for (holder, category,
// proposal), returning nil when the holder never voted there.
func (r *VoteRepository) Get(ctx context.Context, holder string, category models.VoteCategory, proposalID int64) (*models.VoteRecord, error) {
	query := `
		SELECT holder_address, category, proposal_id, votes, updated_at
		FROM votes
		WHERE holder_address = $1 AND category = $2 AND proposal_id = $3
	`

	var v models.VoteRecord
	err := r.q.QueryRow(ctx, query, holder, category, proposalID).Scan(
		&v.HolderAddress,
		&v.Category,
		&v.ProposalID,
		&v.Votes,
		&v.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get votes for %s on %s/%d: %w", holder, category, proposalID, err)
	}

	return &v, nil
}

// Add increments the cumulative votes for (holder, category, proposal),
// inserting the record on first vote. The counter only ever grows.
func (r *VoteRepository) Add(ctx context.Context, holder string, category models.VoteCategory, proposalID int64, votes int64) error {
	query := `
		INSERT INTO votes (holder_address, category, proposal_id, votes, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (holder_address, category, proposal_id)
		DO UPDATE SET votes = votes.votes + EXCLUDED.votes, updated_at = NOW()
	`

	if _, err := r.q.Exec(ctx, query, holder, category, proposalID, votes); err != nil {
		return fmt.Errorf("failed to add votes for %s on %s/%d: %w", holder, category, proposalID, err)
	}

	return nil
}
