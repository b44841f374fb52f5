package repository

import (
	"context"
	"fmt"

	"governor/database"
	"governor/events"
	"governor/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db                 *database.DB
	tx                 pgx.Tx
	ctx                context.Context
	transactionalBus   *events.TransactionalBus
	proposalRepo       service.ProposalRepository
	updateProposalRepo service.UpdateProposalRepository
	deleteProposalRepo service.DeleteProposalRepository
	ruleRegistryRepo   service.RuleRegistryRepository
	voteRepo           service.VoteRepository
	holderRepo         service.HolderRepository
	treasuryRepo       service.TreasuryRepository
	payoutRepo         service.PayoutRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.proposalRepo = newProposalRepositoryWithTx(tx)
	u.updateProposalRepo = newUpdateProposalRepositoryWithTx(tx)
	u.deleteProposalRepo = newDeleteProposalRepositoryWithTx(tx)
	u.ruleRegistryRepo = newRuleRegistryRepositoryWithTx(tx)
	u.voteRepo = newVoteRepositoryWithTx(tx)
	u.holderRepo = newHolderRepositoryWithTx(tx)
	u.treasuryRepo = newTreasuryRepositoryWithTx(tx)
	u.payoutRepo = newPayoutRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// ProposalRepository returns the proposal repository for this unit of work
func (u *unitOfWork) ProposalRepository() service.ProposalRepository {
	if u.proposalRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.proposalRepo
}

// UpdateProposalRepository returns the update proposal repository for this unit of work
func (u *unitOfWork) UpdateProposalRepository() service.UpdateProposalRepository {
	if u.updateProposalRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.updateProposalRepo
}

// DeleteProposalRepository returns the delete proposal repository for this unit of work
func (u *unitOfWork) DeleteProposalRepository() service.DeleteProposalRepository {
	if u.deleteProposalRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.deleteProposalRepo
}

// RuleRegistryRepository returns the rule registry repository for this unit of work
func (u *unitOfWork) RuleRegistryRepository() service.RuleRegistryRepository {
	if u.ruleRegistryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ruleRegistryRepo
}

// VoteRepository returns the vote repository for this unit of work
func (u *unitOfWork) VoteRepository() service.VoteRepository {
	if u.voteRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.voteRepo
}

// HolderRepository returns the holder repository for this unit of work
func (u *unitOfWork) HolderRepository() service.HolderRepository {
	if u.holderRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.holderRepo
}

// TreasuryRepository returns the treasury repository for this unit of work
func (u *unitOfWork) TreasuryRepository() service.TreasuryRepository {
	if u.treasuryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.treasuryRepo
}

// PayoutRepository returns the payout repository for this unit of work
func (u *unitOfWork) PayoutRepository() service.PayoutRepository {
	if u.payoutRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.payoutRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
