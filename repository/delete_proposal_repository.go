package repository

import (
	"context"
	"fmt"

	"governor/database"
	"governor/models"

	"github.com/jackc/pgx/v5"
)

// DeleteProposalRepository implements the service.DeleteProposalRepository interface
type DeleteProposalRepository struct {
	q queryable
}

// NewDeleteProposalRepository creates a new delete proposal repository
func NewDeleteProposalRepository(db *database.DB) *DeleteProposalRepository {
	return &DeleteProposalRepository{q: db.Pool}
}

// newDeleteProposalRepositoryWithTx creates a new delete proposal repository with a transaction
func newDeleteProposalRepositoryWithTx(tx queryable) *DeleteProposalRepository {
	return &DeleteProposalRepository{q: tx}
}

// Create appends a new delete proposal and fills in its ID and timestamp
func (r *DeleteProposalRepository) Create(ctx context.Context, d *models.DeleteProposal) error {
	query := `
		INSERT INTO delete_proposals (rule_index, status, votes)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, d.RuleIndex, d.Status, d.Votes).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create delete proposal for rule %d: %w", d.RuleIndex, err)
	}

	return nil
}

// GetByID retrieves a delete proposal by its ID, returning nil when absent
func (r *DeleteProposalRepository) GetByID(ctx context.Context, id int64) (*models.DeleteProposal, error) {
	query := `
		SELECT id, rule_index, status, votes, created_at
		FROM delete_proposals
		WHERE id = $1
	`

	var d models.DeleteProposal
	err := r.q.QueryRow(ctx, query, id).Scan(
		&d.ID,
		&d.RuleIndex,
		&d.Status,
		&d.Votes,
		&d.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delete proposal %d: %w", id, err)
	}

	return &d, nil
}

// Update persists the status and tally of a delete proposal
func (r *DeleteProposalRepository) Update(ctx context.Context, d *models.DeleteProposal) error {
	query := `
		UPDATE delete_proposals
		SET status = $2, votes = $3
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query, d.ID, d.Status, d.Votes)
	if err != nil {
		return fmt.Errorf("failed to update delete proposal %d: %w", d.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete proposal %d not found for update", d.ID)
	}

	return nil
}
