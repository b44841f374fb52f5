package service

import (
	"context"
	"fmt"
	"time"
)

type ledgerService struct {
	uowFactory UnitOfWorkFactory
	now        func() time.Time
}

// NewLedgerService creates the reference token ledger backed by the
// holders table. Transfers drive the balance-change hook for both parties
// inside the same transaction as the balance mutation.
func NewLedgerService(uowFactory UnitOfWorkFactory) TokenLedger {
	return &ledgerService{
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

// BalanceOf returns a holder's current balance, 0 for unknown holders
func (s *ledgerService) BalanceOf(ctx context.Context, holder string) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	record, err := uow.HolderRepository().Get(ctx, holder)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, err
	}
	if record == nil {
		return 0, nil
	}
	return record.Balance, nil
}

// TotalSupply returns the sum of all balances
func (s *ledgerService) TotalSupply(ctx context.Context) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	total, err := uow.HolderRepository().TotalSupply(ctx)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

// Transfer moves amount between holders, running the balance-change hook
// for both sides before the balances move
func (s *ledgerService) Transfer(ctx context.Context, from, to string, amount int64) error {
	if amount <= 0 {
		return NewError(ErrCodeValidation, "amount must be positive")
	}
	if from == "" || to == "" {
		return NewError(ErrCodeValidation, "transfer parties cannot be empty")
	}
	if from == to {
		return NewError(ErrCodeValidation, "cannot transfer to self")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	treasury, err := uow.TreasuryRepository().GetForUpdate(ctx)
	if err != nil {
		return err
	}

	now := s.now()

	// Hooks run on pre-change balances
	sender, err := applyBalanceChangeHook(ctx, uow, treasury, from, now)
	if err != nil {
		return err
	}
	if sender.Balance < amount {
		return NewError(ErrCodeValidation, "holder %s has %d, cannot transfer %d", from, sender.Balance, amount)
	}

	recipient, err := applyBalanceChangeHook(ctx, uow, treasury, to, now)
	if err != nil {
		return err
	}

	sender.Balance -= amount
	recipient.Balance += amount

	if err := uow.HolderRepository().Upsert(ctx, sender); err != nil {
		return err
	}
	if err := uow.HolderRepository().Upsert(ctx, recipient); err != nil {
		return err
	}

	return uow.Commit()
}
