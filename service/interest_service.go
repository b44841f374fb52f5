package service

import (
	"context"
	"fmt"
	"time"

	"governor/events"
	"governor/models"

	log "github.com/sirupsen/logrus"
)

type interestService struct {
	uowFactory UnitOfWorkFactory
	now        func() time.Time
}

// NewInterestService creates a new interest service
func NewInterestService(uowFactory UnitOfWorkFactory) InterestService {
	return &interestService{
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

// EnsureEpochLength persists the configured epoch length into the
// treasury row. Called at bootstrap; the running epoch keeps its
// boundary, only the length the next close is measured against changes.
func (s *interestService) EnsureEpochLength(ctx context.Context, seconds int64) error {
	if seconds <= 0 {
		return NewError(ErrCodeValidation, "epoch length must be positive, got %d", seconds)
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
	if treasury.EpochLengthSeconds == seconds {
		return uow.Commit()
	}

	treasury.EpochLengthSeconds = seconds
	if err := uow.TreasuryRepository().Update(ctx, treasury); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"epochLengthSeconds": seconds,
	}).Info("Configured interest epoch length")

	return nil
}

// BeforeBalanceChange is the hook invoked before every transfer, for both
// parties. Freezing the pre-change balance on the first change of an
// epoch keeps mid-epoch trades from diluting the dividend in flight.
func (s *interestService) BeforeBalanceChange(ctx context.Context, holder string) error {
	if holder == "" {
		return NewError(ErrCodeValidation, "holder cannot be empty")
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

	if _, err := applyBalanceChangeHook(ctx, uow, treasury, holder, s.now()); err != nil {
		return err
	}

	return uow.Commit()
}

// applyBalanceChangeHook stamps the holder's voting-change time and, on
// the first balance change of the current epoch, snapshots their
// pre-change balance. Shared with the token ledger's transfer path so the
// hook runs inside the same transaction as the balance mutation. Returns
// the persisted record.
func applyBalanceChangeHook(ctx context.Context, uow UnitOfWork, treasury *models.Treasury, holder string, now time.Time) (*models.HolderRecord, error) {
	record, err := uow.HolderRepository().Get(ctx, holder)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &models.HolderRecord{Address: holder}
	}

	record.VotingChangedAt = &now
	if record.InterestChangedAt == nil || record.InterestChangedAt.Before(treasury.LastEpochAt) {
		record.SnapshotCurrent(now)
	}

	if err := uow.HolderRepository().Upsert(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

// DivideUpInterest closes the epoch: everything in DAO funds, plus any
// dividend still unclaimed from prior epochs, becomes the new withdrawable
// interest pool.
func (s *interestService) DivideUpInterest(ctx context.Context) error {
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
	if !treasury.EpochElapsed(now) {
		return NewError(ErrCodeTooEarly, "epoch of %ds has not elapsed since %s", treasury.EpochLengthSeconds, treasury.LastEpochAt.UTC().Format(time.RFC3339))
	}

	treasury.InterestTotal = treasury.DAOFunds + treasury.InterestRemaining
	treasury.InterestRemaining = treasury.InterestTotal
	treasury.DAOFunds = 0
	treasury.LastEpochAt = now

	if err := uow.TreasuryRepository().Update(ctx, treasury); err != nil {
		return err
	}

	uow.EventBus().Publish(events.EpochClosedEvent{
		InterestTotal: treasury.InterestTotal,
		ClosedAt:      now.Unix(),
	})

	if err := uow.Commit(); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"interestTotal": treasury.InterestTotal,
	}).Info("Closed interest epoch")

	return nil
}

// HolderInterest computes a holder's withdrawable dividend for the
// current epoch
func (s *interestService) HolderInterest(ctx context.Context, holder string) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	treasury, err := uow.TreasuryRepository().Get(ctx)
	if err != nil {
		return 0, err
	}

	amount, err := holderInterest(ctx, uow, treasury, holder)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, err
	}
	return amount, nil
}

// holderInterest is the pro-rata dividend computation shared by the query
// and the withdrawal path
func holderInterest(ctx context.Context, uow UnitOfWork, treasury *models.Treasury, holder string) (int64, error) {
	record, err := uow.HolderRepository().Get(ctx, holder)
	if err != nil {
		return 0, err
	}
	if record == nil {
		return 0, nil
	}
	if record.WithdrewSince(treasury.LastEpochAt) {
		return 0, nil
	}

	totalSupply, err := uow.HolderRepository().TotalSupply(ctx)
	if err != nil {
		return 0, err
	}
	if totalSupply == 0 {
		return 0, nil
	}

	return treasury.InterestTotal * record.EffectiveBalance(treasury.LastEpochAt) / totalSupply, nil
}

// WithdrawInterest pays the holder's dividend out of the interest pool
func (s *interestService) WithdrawInterest(ctx context.Context, holder string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	treasury, err := uow.TreasuryRepository().GetForUpdate(ctx)
	if err != nil {
		return err
	}

	amount, err := holderInterest(ctx, uow, treasury, holder)
	if err != nil {
		return err
	}
	if amount == 0 {
		return NewError(ErrCodeZeroAmount, "holder %s has no interest to withdraw", holder)
	}

	record, err := uow.HolderRepository().Get(ctx, holder)
	if err != nil {
		return err
	}

	now := s.now()
	record.LastWithdrawalAt = &now

	// A holder who sold everything is fully settled after collecting
	// their last dividend, so their record is removed entirely
	if record.Balance == 0 {
		if err := uow.HolderRepository().Delete(ctx, holder); err != nil {
			return err
		}
	} else {
		if err := uow.HolderRepository().Upsert(ctx, record); err != nil {
			return err
		}
	}

	treasury.InterestRemaining -= amount
	if err := uow.TreasuryRepository().Update(ctx, treasury); err != nil {
		return err
	}

	payout := &models.Payout{
		Recipient: holder,
		Amount:    amount,
		Reason:    models.PayoutReasonInterest,
	}
	if err := uow.PayoutRepository().Record(ctx, payout); err != nil {
		return err
	}

	uow.EventBus().Publish(events.InterestWithdrawnEvent{
		Holder: holder,
		Amount: amount,
	})

	return uow.Commit()
}
