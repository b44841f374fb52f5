package service

import (
	"context"
	"fmt"
	"time"

	"governor/events"
	"governor/models"

	log "github.com/sirupsen/logrus"
)

type governanceService struct {
	uowFactory UnitOfWorkFactory
	now        func() time.Time
}

// NewGovernanceService creates a new governance service
func NewGovernanceService(uowFactory UnitOfWorkFactory) GovernanceService {
	return &governanceService{
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

// EnsureFoundingRule idempotently seeds the protected rule at registry
// position 0. Safe to call on every startup.
func (s *governanceService) EnsureFoundingRule(ctx context.Context, executor string, percent int64) error {
	if executor == "" {
		return NewError(ErrCodeValidation, "founding executor cannot be empty")
	}
	if percent <= 0 || percent > models.MaxBudgetPercent {
		return NewError(ErrCodeValidation, "founding percent must be in 1..%d, got %d", models.MaxBudgetPercent, percent)
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

	slot, err := uow.RuleRegistryRepository().Get(ctx, models.FoundingRuleIndex)
	if err != nil {
		return err
	}
	if slot != nil {
		// Already seeded
		return uow.Commit()
	}

	proposal := &models.Proposal{
		Name:      "founding",
		Kind:      models.RuleKindPercentage,
		Percent:   percent,
		Status:    models.ProposalStatusAccepted,
		Executor:  executor,
		Initiator: executor,
	}
	if err := uow.ProposalRepository().Create(ctx, proposal); err != nil {
		return err
	}

	position, err := uow.RuleRegistryRepository().Append(ctx, proposal.ID)
	if err != nil {
		return err
	}

	treasury.ReserveBudget(percent)
	if err := uow.TreasuryRepository().Update(ctx, treasury); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"proposalID": proposal.ID,
		"position":   position,
		"percent":    percent,
	}).Info("Seeded founding rule")

	return nil
}

// CreateProposal appends a new creation proposal
func (s *governanceService) CreateProposal(ctx context.Context, initiator string, in CreateProposalInput) (*models.Proposal, error) {
	if in.Name == "" {
		return nil, NewError(ErrCodeValidation, "proposal name cannot be empty")
	}
	if in.Executor == "" {
		return nil, NewError(ErrCodeValidation, "executor cannot be empty")
	}
	if in.Percent <= 0 {
		return nil, NewError(ErrCodeValidation, "percent must be positive")
	}
	if in.Kind != models.RuleKindFixed && in.Kind != models.RuleKindPercentage {
		return nil, NewError(ErrCodeValidation, "unknown rule kind %q", in.Kind)
	}
	if in.Kind == models.RuleKindFixed && in.Value == 0 {
		return nil, NewError(ErrCodeValidation, "fixed rule needs a non-zero value")
	}

	now := s.now()
	if in.TimeFrom != 0 && !time.Unix(in.TimeFrom, 0).After(now) {
		return nil, NewError(ErrCodeWindow, "timeFrom must be strictly in the future")
	}
	if in.TimeTo != 0 && !time.Unix(in.TimeTo, 0).After(now) {
		return nil, NewError(ErrCodeWindow, "timeTo must be strictly in the future")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	treasury, err := uow.TreasuryRepository().GetForUpdate(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.ensureEligibleInitiator(ctx, uow, initiator); err != nil {
		return nil, err
	}

	// Percentage rules reserve their share up front, at proposal time
	if in.Kind == models.RuleKindPercentage {
		if !treasury.CanReserveBudget(in.Percent) {
			return nil, NewError(ErrCodeBudgetExceeded, "percent %d would push the budget past %d (used %d)", in.Percent, models.MaxBudgetPercent, treasury.BudgetUsed)
		}
		treasury.ReserveBudget(in.Percent)
		if err := uow.TreasuryRepository().Update(ctx, treasury); err != nil {
			return nil, err
		}
	}

	proposal := &models.Proposal{
		Name:      in.Name,
		Kind:      in.Kind,
		Value:     in.Value,
		Percent:   in.Percent,
		TimeFrom:  unixTime(in.TimeFrom),
		TimeTo:    unixTime(in.TimeTo),
		Status:    models.ProposalStatusCreated,
		Executor:  in.Executor,
		Initiator: initiator,
	}
	if err := uow.ProposalRepository().Create(ctx, proposal); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.ProposalCreatedEvent{
		ProposalID: proposal.ID,
		Initiator:  initiator,
		Kind:       proposal.Kind,
		Percent:    proposal.Percent,
		Value:      proposal.Value,
	})

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return proposal, nil
}

// ProposeUpdate appends an update proposal against an accepted rule
func (s *governanceService) ProposeUpdate(ctx context.Context, initiator string, in UpdateProposalInput) (*models.UpdateProposal, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := uow.TreasuryRepository().GetForUpdate(ctx); err != nil {
		return nil, err
	}

	target, err := uow.ProposalRepository().GetByID(ctx, in.ProposalID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, NewError(ErrCodeNotFound, "proposal %d not found", in.ProposalID)
	}
	if target.Status != models.ProposalStatusAccepted {
		return nil, NewError(ErrCodeState, "proposal %d is %s, only accepted rules can be updated", target.ID, target.Status)
	}

	update := &models.UpdateProposal{
		ProposalID: in.ProposalID,
		Name:       in.Name,
		Value:      in.Value,
		Percent:    in.Percent,
		TimeFrom:   unixTime(in.TimeFrom),
		TimeTo:     unixTime(in.TimeTo),
		Executor:   in.Executor,
		Status:     models.ProposalStatusCreated,
	}
	if update.IsNoop() {
		return nil, NewError(ErrCodeValidation, "update proposal changes nothing")
	}

	if err := s.ensureEligibleInitiator(ctx, uow, initiator); err != nil {
		return nil, err
	}

	if err := uow.UpdateProposalRepository().Create(ctx, update); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.UpdateProposedEvent{
		UpdateProposalID: update.ID,
		TargetProposalID: in.ProposalID,
		Initiator:        initiator,
	})

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return update, nil
}

// ProposeDelete appends a delete proposal against a registry position
func (s *governanceService) ProposeDelete(ctx context.Context, initiator string, ruleIndex int64) (*models.DeleteProposal, error) {
	if ruleIndex == models.FoundingRuleIndex {
		return nil, NewError(ErrCodeState, "rule %d is protected and cannot be deleted", ruleIndex)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := uow.TreasuryRepository().GetForUpdate(ctx); err != nil {
		return nil, err
	}

	slot, err := uow.RuleRegistryRepository().Get(ctx, ruleIndex)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, NewError(ErrCodeNotFound, "registry position %d does not exist", ruleIndex)
	}
	if !slot.Live {
		return nil, NewError(ErrCodeState, "registry position %d is already tombstoned", ruleIndex)
	}

	if err := s.ensureEligibleInitiator(ctx, uow, initiator); err != nil {
		return nil, err
	}

	del := &models.DeleteProposal{
		RuleIndex: ruleIndex,
		Status:    models.ProposalStatusCreated,
	}
	if err := uow.DeleteProposalRepository().Create(ctx, del); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.DeleteProposedEvent{
		DeleteProposalID: del.ID,
		RuleIndex:        ruleIndex,
		Initiator:        initiator,
	})

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return del, nil
}

// Vote casts votes on a proposal in a category and attempts activation
// when the tally reaches quorum
func (s *governanceService) Vote(ctx context.Context, holder string, proposalID int64, votes int64, category models.VoteCategory) error {
	if !models.ValidCategory(category) {
		return NewError(ErrCodeCategory, "unknown vote category %q", category)
	}
	if votes <= 0 {
		return NewError(ErrCodeValidation, "votes must be positive")
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

	record, err := uow.HolderRepository().Get(ctx, holder)
	if err != nil {
		return err
	}
	if record == nil || record.Balance == 0 {
		return NewError(ErrCodeEligibility, "holder %s has no balance", holder)
	}

	totalSupply, err := uow.HolderRepository().TotalSupply(ctx)
	if err != nil {
		return err
	}

	tally, createdAt, err := s.targetTally(ctx, uow, category, proposalID)
	if err != nil {
		return err
	}

	// A holder whose balance changed after the proposal was created may
	// not vote on it: tokens acquired post-creation carry no say there.
	if record.ChangedSince(createdAt) {
		return NewError(ErrCodeEligibility, "holder %s changed balance after proposal %d was created", holder, proposalID)
	}

	cast, err := uow.VoteRepository().Get(ctx, holder, category, proposalID)
	if err != nil {
		return err
	}
	var alreadyCast int64
	if cast != nil {
		alreadyCast = cast.Votes
	}
	if alreadyCast+votes > record.Balance {
		return NewError(ErrCodeEligibility, "holder %s cannot cast %d votes, %d already cast against a balance of %d", holder, votes, alreadyCast, record.Balance)
	}

	if err := uow.VoteRepository().Add(ctx, holder, category, proposalID, votes); err != nil {
		return err
	}

	newTally := tally + votes
	if err := s.applyTally(ctx, uow, treasury, category, proposalID, newTally, totalSupply); err != nil {
		return err
	}

	uow.EventBus().Publish(events.VoteCastEvent{
		ProposalID: proposalID,
		Category:   category,
		Holder:     holder,
		Votes:      votes,
		Tally:      newTally,
	})

	return uow.Commit()
}

// targetTally loads the current tally and creation time of the voted-on
// proposal for the given category
func (s *governanceService) targetTally(ctx context.Context, uow UnitOfWork, category models.VoteCategory, proposalID int64) (int64, time.Time, error) {
	switch category {
	case models.VoteCategoryCreate:
		p, err := uow.ProposalRepository().GetByID(ctx, proposalID)
		if err != nil {
			return 0, time.Time{}, err
		}
		if p == nil {
			return 0, time.Time{}, NewError(ErrCodeNotFound, "proposal %d not found", proposalID)
		}
		return p.Votes, p.CreatedAt, nil
	case models.VoteCategoryUpdate:
		u, err := uow.UpdateProposalRepository().GetByID(ctx, proposalID)
		if err != nil {
			return 0, time.Time{}, err
		}
		if u == nil {
			return 0, time.Time{}, NewError(ErrCodeNotFound, "update proposal %d not found", proposalID)
		}
		return u.Votes, u.CreatedAt, nil
	default:
		d, err := uow.DeleteProposalRepository().GetByID(ctx, proposalID)
		if err != nil {
			return 0, time.Time{}, err
		}
		if d == nil {
			return 0, time.Time{}, NewError(ErrCodeNotFound, "delete proposal %d not found", proposalID)
		}
		return d.Votes, d.CreatedAt, nil
	}
}

// applyTally persists the new tally and drives activation when quorum is
// reached. Re-driving activation on an already-accepted target is a
// deliberate silent no-op: the vote is recorded, nothing else changes.
func (s *governanceService) applyTally(ctx context.Context, uow UnitOfWork, treasury *models.Treasury, category models.VoteCategory, proposalID, newTally, totalSupply int64) error {
	quorum := models.MeetsQuorum(newTally, totalSupply)

	switch category {
	case models.VoteCategoryCreate:
		p, err := uow.ProposalRepository().GetByID(ctx, proposalID)
		if err != nil {
			return err
		}
		p.Votes = newTally
		if quorum && p.Status == models.ProposalStatusCreated {
			if err := s.activateCreate(ctx, uow, p); err != nil {
				return err
			}
		}
		return uow.ProposalRepository().Update(ctx, p)

	case models.VoteCategoryUpdate:
		u, err := uow.UpdateProposalRepository().GetByID(ctx, proposalID)
		if err != nil {
			return err
		}
		u.Votes = newTally
		if quorum && u.Status == models.ProposalStatusCreated {
			if err := s.activateUpdate(ctx, uow, treasury, u); err != nil {
				return err
			}
		}
		return uow.UpdateProposalRepository().Update(ctx, u)

	default:
		d, err := uow.DeleteProposalRepository().GetByID(ctx, proposalID)
		if err != nil {
			return err
		}
		d.Votes = newTally
		if quorum && d.Status == models.ProposalStatusCreated {
			if err := s.activateDelete(ctx, uow, treasury, d); err != nil {
				return err
			}
		}
		return uow.DeleteProposalRepository().Update(ctx, d)
	}
}

// activateCreate accepts the proposal and registers it as a live rule
func (s *governanceService) activateCreate(ctx context.Context, uow UnitOfWork, p *models.Proposal) error {
	p.Status = models.ProposalStatusAccepted

	position, err := uow.RuleRegistryRepository().Append(ctx, p.ID)
	if err != nil {
		return err
	}

	uow.EventBus().Publish(events.ProposalAcceptedEvent{
		ProposalID: p.ID,
		RuleIndex:  position,
	})

	log.WithFields(log.Fields{
		"proposalID": p.ID,
		"position":   position,
		"votes":      p.Votes,
	}).Info("Proposal accepted into rule registry")

	return nil
}

// activateUpdate accepts the update proposal and merge-applies its
// overrides to the target rule, adjusting the budget for percent changes
func (s *governanceService) activateUpdate(ctx context.Context, uow UnitOfWork, treasury *models.Treasury, u *models.UpdateProposal) error {
	target, err := uow.ProposalRepository().GetByID(ctx, u.ProposalID)
	if err != nil {
		return err
	}
	if target == nil || target.Status != models.ProposalStatusAccepted {
		// Target gone or no longer a rule; the vote stands, nothing to apply
		return nil
	}

	if delta := u.PercentDelta(target); delta != 0 && target.ClaimsBudget() {
		if !treasury.CanReserveBudget(delta) {
			return NewError(ErrCodeBudgetExceeded, "percent change of %+d would push the budget past %d (used %d)", delta, models.MaxBudgetPercent, treasury.BudgetUsed)
		}
		treasury.ReserveBudget(delta)
		if err := uow.TreasuryRepository().Update(ctx, treasury); err != nil {
			return err
		}
	}

	u.ApplyTo(target)
	u.Status = models.ProposalStatusAccepted

	if err := uow.ProposalRepository().Update(ctx, target); err != nil {
		return err
	}

	uow.EventBus().Publish(events.RuleUpdatedEvent{
		UpdateProposalID: u.ID,
		TargetProposalID: target.ID,
	})

	return nil
}

// activateDelete accepts the delete proposal, tombstones the registry
// slot and releases the rule's budget share
func (s *governanceService) activateDelete(ctx context.Context, uow UnitOfWork, treasury *models.Treasury, d *models.DeleteProposal) error {
	slot, err := uow.RuleRegistryRepository().Get(ctx, d.RuleIndex)
	if err != nil {
		return err
	}
	if slot == nil || !slot.Live {
		// Already tombstoned; the vote stands, nothing to remove
		return nil
	}

	target, err := uow.ProposalRepository().GetByID(ctx, *slot.ProposalID)
	if err != nil {
		return err
	}

	if err := uow.RuleRegistryRepository().Tombstone(ctx, d.RuleIndex); err != nil {
		return err
	}

	if target != nil {
		if target.ClaimsBudget() && target.Status == models.ProposalStatusAccepted {
			treasury.ReserveBudget(-target.Percent)
			if err := uow.TreasuryRepository().Update(ctx, treasury); err != nil {
				return err
			}
		}
		target.Status = models.ProposalStatusDeleted
		if err := uow.ProposalRepository().Update(ctx, target); err != nil {
			return err
		}
	}

	d.Status = models.ProposalStatusAccepted

	uow.EventBus().Publish(events.RuleDeletedEvent{
		DeleteProposalID: d.ID,
		RuleIndex:        d.RuleIndex,
		ProposalID:       *slot.ProposalID,
	})

	return nil
}

// Defragment compacts the rule registry. Pure housekeeping: budget and
// statuses are untouched.
func (s *governanceService) Defragment(ctx context.Context) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if _, err := uow.TreasuryRepository().GetForUpdate(ctx); err != nil {
		return err
	}

	if err := uow.RuleRegistryRepository().Defragment(ctx); err != nil {
		return err
	}

	return uow.Commit()
}

// GetProposal retrieves a creation proposal
func (s *governanceService) GetProposal(ctx context.Context, id int64) (*models.Proposal, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	p, err := uow.ProposalRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, NewError(ErrCodeNotFound, "proposal %d not found", id)
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

// GetUpdateProposal retrieves an update proposal
func (s *governanceService) GetUpdateProposal(ctx context.Context, id int64) (*models.UpdateProposal, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	u, err := uow.UpdateProposalRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewError(ErrCodeNotFound, "update proposal %d not found", id)
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return u, nil
}

// GetDeleteProposal retrieves a delete proposal
func (s *governanceService) GetDeleteProposal(ctx context.Context, id int64) (*models.DeleteProposal, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	d, err := uow.DeleteProposalRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, NewError(ErrCodeNotFound, "delete proposal %d not found", id)
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return d, nil
}

// GetVoteStatus returns the tally and status of a proposal in a category
func (s *governanceService) GetVoteStatus(ctx context.Context, proposalID int64, category models.VoteCategory) (*VoteStatus, error) {
	if !models.ValidCategory(category) {
		return nil, NewError(ErrCodeCategory, "unknown vote category %q", category)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	var status *VoteStatus
	switch category {
	case models.VoteCategoryCreate:
		p, err := uow.ProposalRepository().GetByID(ctx, proposalID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, NewError(ErrCodeNotFound, "proposal %d not found", proposalID)
		}
		status = &VoteStatus{Votes: p.Votes, Status: p.Status}
	case models.VoteCategoryUpdate:
		u, err := uow.UpdateProposalRepository().GetByID(ctx, proposalID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, NewError(ErrCodeNotFound, "update proposal %d not found", proposalID)
		}
		status = &VoteStatus{Votes: u.Votes, Status: u.Status}
	default:
		d, err := uow.DeleteProposalRepository().GetByID(ctx, proposalID)
		if err != nil {
			return nil, err
		}
		if d == nil {
			return nil, NewError(ErrCodeNotFound, "delete proposal %d not found", proposalID)
		}
		status = &VoteStatus{Votes: d.Votes, Status: d.Status}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return status, nil
}

// GetCastVotes returns a holder's cumulative votes on (proposal, category)
func (s *governanceService) GetCastVotes(ctx context.Context, holder string, proposalID int64, category models.VoteCategory) (int64, error) {
	if !models.ValidCategory(category) {
		return 0, NewError(ErrCodeCategory, "unknown vote category %q", category)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	record, err := uow.VoteRepository().Get(ctx, holder, category, proposalID)
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, err
	}
	if record == nil {
		return 0, nil
	}
	return record.Votes, nil
}

// ListRules returns a bounded page of live registry slots
func (s *governanceService) ListRules(ctx context.Context, offset, limit int64) ([]*models.RuleSlot, error) {
	if limit <= 0 {
		return nil, NewError(ErrCodeValidation, "limit must be positive")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	slots, err := uow.RuleRegistryRepository().ListLive(ctx, offset, limit)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return slots, nil
}

// ensureEligibleInitiator enforces the proposal-opening stake: non-zero
// balance of at least 3% of total supply
func (s *governanceService) ensureEligibleInitiator(ctx context.Context, uow UnitOfWork, initiator string) error {
	if initiator == "" {
		return NewError(ErrCodeValidation, "initiator cannot be empty")
	}

	record, err := uow.HolderRepository().Get(ctx, initiator)
	if err != nil {
		return err
	}
	if record == nil {
		return NewError(ErrCodeEligibility, "holder %s has no balance", initiator)
	}

	totalSupply, err := uow.HolderRepository().TotalSupply(ctx)
	if err != nil {
		return err
	}
	if !models.EligibleInitiator(record.Balance, totalSupply) {
		return NewError(ErrCodeEligibility, "holder %s needs at least 3%% of total supply to open proposals", initiator)
	}

	return nil
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
