package repository

import (
	"context"
	"fmt"

	"governor/database"
	"governor/models"

	"github.com/jackc/pgx/v5"
)

// RuleRegistryRepository implements the service.RuleRegistryRepository
// interface over the rule_slots table: an index-stable sparse array where
// deletion tombstones a slot instead of shifting positions.
type RuleRegistryRepository struct {
	q queryable
}

// NewRuleRegistryRepository creates a new rule registry repository
func NewRuleRegistryRepository(db *database.DB) *RuleRegistryRepository {
	return &RuleRegistryRepository{q: db.Pool}
}

// newRuleRegistryRepositoryWithTx creates a new rule registry repository with a transaction
func newRuleRegistryRepositoryWithTx(tx queryable) *RuleRegistryRepository {
	return &RuleRegistryRepository{q: tx}
}

// Append registers an accepted proposal at the next free tail position and
// returns that position.
func (r *RuleRegistryRepository) Append(ctx context.Context, proposalID int64) (int64, error) {
	query := `
		INSERT INTO rule_slots (position, proposal_id, live)
		SELECT COALESCE(MAX(position) + 1, 0), $1, TRUE
		FROM rule_slots
		RETURNING position
	`

	var position int64
	if err := r.q.QueryRow(ctx, query, proposalID).Scan(&position); err != nil {
		return 0, fmt.Errorf("failed to append proposal %d to registry: %w", proposalID, err)
	}

	return position, nil
}

// Get retrieves the slot at a position, returning nil when the position was
// never occupied.
func (r *RuleRegistryRepository) Get(ctx context.Context, position int64) (*models.RuleSlot, error) {
	query := `
		SELECT position, proposal_id, live
		FROM rule_slots
		WHERE position = $1
	`

	var slot models.RuleSlot
	err := r.q.QueryRow(ctx, query, position).Scan(&slot.Position, &slot.ProposalID, &slot.Live)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registry slot %d: %w", position, err)
	}

	return &slot, nil
}

// FindLiveByProposal returns the live slot holding the given proposal, or
// nil when the proposal is not registered.
func (r *RuleRegistryRepository) FindLiveByProposal(ctx context.Context, proposalID int64) (*models.RuleSlot, error) {
	query := `
		SELECT position, proposal_id, live
		FROM rule_slots
		WHERE proposal_id = $1 AND live
	`

	var slot models.RuleSlot
	err := r.q.QueryRow(ctx, query, proposalID).Scan(&slot.Position, &slot.ProposalID, &slot.Live)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find registry slot for proposal %d: %w", proposalID, err)
	}

	return &slot, nil
}

// Tombstone marks a slot dead and clears its proposal reference. The
// position itself stays occupied so later positions do not shift.
func (r *RuleRegistryRepository) Tombstone(ctx context.Context, position int64) error {
	query := `
		UPDATE rule_slots
		SET proposal_id = NULL, live = FALSE
		WHERE position = $1
	`

	tag, err := r.q.Exec(ctx, query, position)
	if err != nil {
		return fmt.Errorf("failed to tombstone registry slot %d: %w", position, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("registry slot %d not found", position)
	}

	return nil
}

// ListLive returns up to limit live slots in registry order starting at the
// given offset among live slots.
func (r *RuleRegistryRepository) ListLive(ctx context.Context, offset, limit int64) ([]*models.RuleSlot, error) {
	query := `
		SELECT position, proposal_id, live
		FROM rule_slots
		WHERE live
		ORDER BY position
		OFFSET $1 LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list live registry slots: %w", err)
	}
	defer rows.Close()

	var slots []*models.RuleSlot
	for rows.Next() {
		var slot models.RuleSlot
		if err := rows.Scan(&slot.Position, &slot.ProposalID, &slot.Live); err != nil {
			return nil, fmt.Errorf("failed to scan registry slot: %w", err)
		}
		slots = append(slots, &slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate registry slots: %w", err)
	}

	return slots, nil
}

// AllLive returns every live slot in registry order. Used by fund
// distribution, which walks the whole registry.
func (r *RuleRegistryRepository) AllLive(ctx context.Context) ([]*models.RuleSlot, error) {
	query := `
		SELECT position, proposal_id, live
		FROM rule_slots
		WHERE live
		ORDER BY position
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list registry slots: %w", err)
	}
	defer rows.Close()

	var slots []*models.RuleSlot
	for rows.Next() {
		var slot models.RuleSlot
		if err := rows.Scan(&slot.Position, &slot.ProposalID, &slot.Live); err != nil {
			return nil, fmt.Errorf("failed to scan registry slot: %w", err)
		}
		slots = append(slots, &slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate registry slots: %w", err)
	}

	return slots, nil
}

// Defragment shifts all live slots to the front of the registry preserving
// relative order and leaves the vacated tail as cleared tombstones. Pure
// housekeeping: it never touches budget or status.
func (r *RuleRegistryRepository) Defragment(ctx context.Context) error {
	live, err := r.AllLive(ctx)
	if err != nil {
		return err
	}

	maxQuery := `SELECT COALESCE(MAX(position), -1) FROM rule_slots`
	var maxPosition int64
	if err := r.q.QueryRow(ctx, maxQuery).Scan(&maxPosition); err != nil {
		return fmt.Errorf("failed to read registry size: %w", err)
	}

	// Two passes so the position primary key never collides mid-shuffle:
	// clear everything, then rewrite the live prefix.
	clearQuery := `UPDATE rule_slots SET proposal_id = NULL, live = FALSE`
	if _, err := r.q.Exec(ctx, clearQuery); err != nil {
		return fmt.Errorf("failed to clear registry: %w", err)
	}

	writeQuery := `
		UPDATE rule_slots
		SET proposal_id = $2, live = TRUE
		WHERE position = $1
	`
	for i, slot := range live {
		if _, err := r.q.Exec(ctx, writeQuery, int64(i), slot.ProposalID); err != nil {
			return fmt.Errorf("failed to compact registry slot %d: %w", i, err)
		}
	}

	return nil
}
