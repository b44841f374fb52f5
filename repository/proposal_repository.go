package repository

import (
	"context"
	"fmt"

	"governor/database"
	"governor/models"

	"github.com/jackc/pgx/v5"
)

// ProposalRepository implements the service.ProposalRepository interface
type ProposalRepository struct {
	q queryable
}

// NewProposalRepository creates a new proposal repository
func NewProposalRepository(db *database.DB) *ProposalRepository {
	return &ProposalRepository{q: db.Pool}
}

// newProposalRepositoryWithTx creates a new proposal repository with a transaction
func newProposalRepositoryWithTx(tx queryable) *ProposalRepository {
	return &ProposalRepository{q: tx}
}

// Create appends a new creation proposal and fills in its ID and timestamp
func (r *ProposalRepository) Create(ctx context.Context, p *models.Proposal) error {
	query := `
		INSERT INTO proposals (name, kind, value, percent, time_from, time_to, status, votes, executor, initiator, balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		p.Name,
		p.Kind,
		p.Value,
		p.Percent,
		p.TimeFrom,
		p.TimeTo,
		p.Status,
		p.Votes,
		p.Executor,
		p.Initiator,
		p.Balance,
	).Scan(&p.ID, &p.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create proposal %q: %w", p.Name, err)
	}

	return nil
}

// GetByID retrieves a proposal by its ID, returning nil when absent
func (r *ProposalRepository) GetByID(ctx context.Context, id int64) (*models.Proposal, error) {
	query := `
		SELECT id, name, kind, value, percent, time_from, time_to, status, votes, executor, initiator, balance, created_at
		FROM proposals
		WHERE id = $1
	`

	var p models.Proposal
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Kind,
		&p.Value,
		&p.Percent,
		&p.TimeFrom,
		&p.TimeTo,
		&p.Status,
		&p.Votes,
		&p.Executor,
		&p.Initiator,
		&p.Balance,
		&p.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal %d: %w", id, err)
	}

	return &p, nil
}

// Update persists every mutable proposal field
func (r *ProposalRepository) Update(ctx context.Context, p *models.Proposal) error {
	query := `
		UPDATE proposals
		SET name = $2, value = $3, percent = $4, time_from = $5, time_to = $6,
		    status = $7, votes = $8, executor = $9, balance = $10
		WHERE id = $1
	`

	tag, err := r.q.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Value,
		p.Percent,
		p.TimeFrom,
		p.TimeTo,
		p.Status,
		p.Votes,
		p.Executor,
		p.Balance,
	)
	if err != nil {
		return fmt.Errorf("failed to update proposal %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("proposal %d not found for update", p.ID)
	}

	return nil
}
