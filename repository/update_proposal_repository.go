package repository

import (
	"context"
	"fmt"

	"governor/database"
	"governor/models"

	"github.com/jackc/pgx/v5"
)

// UpdateProposalRepository implements the service.UpdateProposalRepository interface
type UpdateProposalRepository struct {
	q queryable
}

// NewUpdateProposalRepository creates a new update proposal repository
func NewUpdateProposalRepository(db *database.DB) *UpdateProposalRepository {
	return &UpdateProposalRepository{q: db.Pool}
}

// newUpdateProposalRepositoryWithTx creates a new update proposal repository with a transaction
func newUpdateProposalRepositoryWithTx(tx queryable) *UpdateProposalRepository {
	return &UpdateProposalRepository{q: tx}
}

// Create appends a new update proposal and fills in its ID and timestamp
func (r *UpdateProposalRepository) Create(ctx context.Context, u *models.UpdateProposal) error {
	query := `
		INSERT INTO update_proposals (proposal_id, name, value, percent, time_from, time_to, executor, status, votes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		u.ProposalID,
		u.Name,
		u.Value,
		u.Percent,
		u.TimeFrom,
		u.TimeTo,
		u.Executor,
		u.Status,
		u.Votes,
	).Scan(&u.ID, &u.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create update proposal for %d: %w", u.ProposalID, err)
	}

	return nil
}

// GetByID retrieves an update proposal by its ID, returning nil when absent
func (r *UpdateProposalRepository) GetByID(ctx context.Context, id int64) (*models.UpdateProposal, error) {
	query := `
		SELECT id, proposal_id, name, value, percent, time_from, time_to, executor, status, votes, created_at
		FROM update_proposals
		WHERE id = $1
	`

	var u models.UpdateProposal
	err := r.q.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.ProposalID,
		&u.Name,
		&u.Value,
		&u.Percent,
		&u.TimeFrom,
		&u.TimeTo,
		&u.Executor,
		&u.Status,
		&u.Votes,
		&u.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get update proposal %d: %w", id, err)
	}

	return &u, nil
}

// Update persists the status and tally of an update proposal
func (r *UpdateProposalRepository) Update(ctx context.Context, u *models.UpdateProposal) error {
	query := `
		UPDATE update_proposals
		SET status = $2, votes = $3
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query, u.ID, u.Status, u.Votes)
	if err != nil {
		return fmt.Errorf("failed to update update proposal %d: %w", u.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update proposal %d not found for update", u.ID)
	}

	return nil
}
