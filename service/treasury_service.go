package service

import (
	"context"
	"fmt"

	"governor/events"
	"governor/models"

	log "github.com/sirupsen/logrus"
)

type treasuryService struct {
	uowFactory      UnitOfWorkFactory
	minDistribution int64
}

// NewTreasuryService creates a new treasury service. minDistribution is
// the smallest undistributed pool worth running a distribution pass over.
func NewTreasuryService(uowFactory UnitOfWorkFactory, minDistribution int64) TreasuryService {
	return &treasuryService{
		uowFactory:      uowFactory,
		minDistribution: minDistribution,
	}
}

// AcceptFunds adds revenue to the undistributed pool
func (s *treasuryService) AcceptFunds(ctx context.Context, from string, amount int64) error {
	if amount <= 0 {
		return NewError(ErrCodeValidation, "amount must be positive")
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

	treasury.Undistributed += amount
	if err := uow.TreasuryRepository().Update(ctx, treasury); err != nil {
		return err
	}

	uow.EventBus().Publish(events.FundsAcceptedEvent{
		From:   from,
		Amount: amount,
	})

	return uow.Commit()
}

// Distribute splits the undistributed pool: 30% off the top is guaranteed
// to the dividend reserve, the remainder is walked across live rules in
// registry order, and everything the rules do not absorb joins the
// guaranteed share in DAO funds. Amount-conserving: guaranteed + credits
// + leftover always equals the pre-call pool.
func (s *treasuryService) Distribute(ctx context.Context) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	treasury, err := uow.TreasuryRepository().GetForUpdate(ctx)
	if err != nil {
		return err
	}

	pool := treasury.Undistributed
	if pool < s.minDistribution {
		return NewError(ErrCodeThreshold, "undistributed pool %d is below the minimum %d", pool, s.minDistribution)
	}

	guaranteed := pool * models.GuaranteedDividendPercent / 100
	remainder := pool - guaranteed

	slots, err := uow.RuleRegistryRepository().AllLive(ctx)
	if err != nil {
		return err
	}

	var absorbed int64
	for _, slot := range slots {
		rule, err := uow.ProposalRepository().GetByID(ctx, *slot.ProposalID)
		if err != nil {
			return err
		}
		if rule == nil {
			return fmt.Errorf("registry slot %d references missing proposal %d", slot.Position, *slot.ProposalID)
		}

		share := rule.Share(remainder)
		if share == 0 {
			continue
		}

		// Credit clamps fixed rules at their target; the excess stays in
		// the unabsorbed total instead of being lost
		credited := rule.Credit(share)
		if credited == 0 {
			continue
		}
		absorbed += credited

		if err := uow.ProposalRepository().Update(ctx, rule); err != nil {
			return err
		}

		uow.EventBus().Publish(events.RuleReplenishedEvent{
			ProposalID: rule.ID,
			Credited:   credited,
			Balance:    rule.Balance,
		})
	}

	leftover := remainder - absorbed
	treasury.DAOFunds += guaranteed + leftover
	treasury.Undistributed = 0

	if err := uow.TreasuryRepository().Update(ctx, treasury); err != nil {
		return err
	}

	uow.EventBus().Publish(events.FundsDistributedEvent{
		Pool:       pool,
		Guaranteed: guaranteed,
		Credited:   absorbed,
		ToDAOFunds: guaranteed + leftover,
	})

	if err := uow.Commit(); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"pool":       pool,
		"guaranteed": guaranteed,
		"credited":   absorbed,
		"daoFunds":   guaranteed + leftover,
	}).Info("Distributed funds between rules")

	return nil
}

// WithdrawFromRule pays a rule's balance out to its executor. Percentage
// rules withdraw any positive balance at any time; fixed rules pay out
// exactly once, when their balance equals their target, and are removed
// from the registry on success.
func (s *treasuryService) WithdrawFromRule(ctx context.Context, proposalID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := uow.TreasuryRepository().GetForUpdate(ctx); err != nil {
		return err
	}

	rule, err := uow.ProposalRepository().GetByID(ctx, proposalID)
	if err != nil {
		return err
	}
	if rule == nil {
		return NewError(ErrCodeNotFound, "proposal %d not found", proposalID)
	}
	if rule.Balance == 0 {
		return NewError(ErrCodeZeroAmount, "rule %d has no balance to withdraw", proposalID)
	}

	removed := false
	if rule.Kind == models.RuleKindFixed {
		if !rule.ReadyForFixedWithdrawal() {
			return NewError(ErrCodeState, "fixed rule %d has %d of %d, withdrawal unlocks at the target", proposalID, rule.Balance, rule.Value)
		}

		// A fixed rule is a one-shot payout, not a recurring allocation
		slot, err := uow.RuleRegistryRepository().FindLiveByProposal(ctx, proposalID)
		if err != nil {
			return err
		}
		if slot != nil {
			if err := uow.RuleRegistryRepository().Tombstone(ctx, slot.Position); err != nil {
				return err
			}
		}
		rule.Status = models.ProposalStatusDeleted
		removed = true
	}

	amount := rule.Balance
	rule.Balance = 0
	if err := uow.ProposalRepository().Update(ctx, rule); err != nil {
		return err
	}

	payout := &models.Payout{
		Recipient:   rule.Executor,
		Amount:      amount,
		Reason:      models.PayoutReasonRuleWithdrawal,
		ReferenceID: rule.ID,
	}
	if err := uow.PayoutRepository().Record(ctx, payout); err != nil {
		return err
	}

	uow.EventBus().Publish(events.RuleWithdrawalEvent{
		ProposalID: rule.ID,
		Executor:   rule.Executor,
		Amount:     amount,
		Removed:    removed,
	})

	return uow.Commit()
}
