package service

import (
	"context"
	"testing"

	"governor/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTreasuryMocks() (*MockUnitOfWork, *MockUnitOfWorkFactory, *MockProposalRepository, *MockRuleRegistryRepository, *MockTreasuryRepository, *MockPayoutRepository) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockProposalRepo := new(MockProposalRepository)
	mockRegistryRepo := new(MockRuleRegistryRepository)
	mockTreasuryRepo := new(MockTreasuryRepository)
	mockPayoutRepo := new(MockPayoutRepository)

	mockUoW.SetRepositories(mockProposalRepo, nil, nil, mockRegistryRepo, nil, nil, mockTreasuryRepo, mockPayoutRepo)
	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", mock.Anything).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	return mockUoW, mockFactory, mockProposalRepo, mockRegistryRepo, mockTreasuryRepo, mockPayoutRepo
}

func TestTreasuryService_AcceptFunds(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, _, mockTreasuryRepo, _ := newTreasuryMocks()
	service := NewTreasuryService(mockFactory, 100)

	treasury := &models.Treasury{Undistributed: 500}
	mockTreasuryRepo.On("GetForUpdate", ctx).Return(treasury, nil)
	mockTreasuryRepo.On("Update", ctx, mock.MatchedBy(func(tr *models.Treasury) bool {
		return tr.Undistributed == 1500
	})).Return(nil)
	mockUoW.On("Commit").Return(nil)

	err := service.AcceptFunds(ctx, "0xclient", 1000)

	require.NoError(t, err)
	mockTreasuryRepo.AssertExpectations(t)
}

func TestTreasuryService_AcceptFunds_RejectsNonPositive(t *testing.T) {
	ctx := context.Background()
	_, mockFactory, _, _, _, _ := newTreasuryMocks()
	service := NewTreasuryService(mockFactory, 100)

	err := service.AcceptFunds(ctx, "0xclient", 0)

	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeValidation))
}

func TestTreasuryService_Distribute_BelowThreshold(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, _, mockTreasuryRepo, _ := newTreasuryMocks()
	service := NewTreasuryService(mockFactory, 1000)

	mockTreasuryRepo.On("GetForUpdate", ctx).Return(&models.Treasury{Undistributed: 999}, nil)

	err := service.Distribute(ctx)

	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeThreshold))
	mockUoW.AssertNotCalled(t, "Commit")
}

// Supply 100, A holds 60, B holds 40, quorum 51: a fixed rule with weight
// 10 was accepted; distributing 10000 reserves 3000, credits the rule 700
// of the 7000 remainder, and 9300 reaches DAO funds.
func TestTreasuryService_Distribute_FixedRuleUnderCap(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockProposalRepo, mockRegistryRepo, mockTreasuryRepo, _ := newTreasuryMocks()
	service := NewTreasuryService(mockFactory, 100)

	ruleID := int64(2)
	rule := &models.Proposal{
		ID:      ruleID,
		Kind:    models.RuleKindFixed,
		Value:   1000,
		Percent: 10,
		Status:  models.ProposalStatusAccepted,
	}
	treasury := &models.Treasury{Undistributed: 10000}

	mockTreasuryRepo.On("GetForUpdate", ctx).Return(treasury, nil)
	mockRegistryRepo.On("AllLive", ctx).Return([]*models.RuleSlot{
		{Position: 1, ProposalID: &ruleID, Live: true},
	}, nil)
	mockProposalRepo.On("GetByID", ctx, ruleID).Return(rule, nil)
	mockProposalRepo.On("Update", ctx, mock.MatchedBy(func(p *models.Proposal) bool {
		return p.ID == ruleID && p.Balance == 700
	})).Return(nil)
	mockTreasuryRepo.On("Update", ctx, mock.MatchedBy(func(tr *models.Treasury) bool {
		return tr.DAOFunds == 9300 && tr.Undistributed == 0
	})).Return(nil)
	mockUoW.On("Commit").Return(nil)

	err := service.Distribute(ctx)

	require.NoError(t, err)
	mockProposalRepo.AssertExpectations(t)
	mockTreasuryRepo.AssertExpectations(t)
}

func TestTreasuryService_Distribute_FixedRuleClampsAtTarget(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockProposalRepo, mockRegistryRepo, mockTreasuryRepo, _ := newTreasuryMocks()
	service := NewTreasuryService(mockFactory, 100)

	ruleID := int64(2)
	rule := &models.Proposal{
		ID:      ruleID,
		Kind:    models.RuleKindFixed,
		Value:   1000,
		Percent: 50,
		Balance: 900,
		Status:  models.ProposalStatusAccepted,
	}
	treasury := &models.Treasury{Undistributed: 10000}

	mockTreasuryRepo.On("GetForUpdate", ctx).Return(treasury, nil)
	mockRegistryRepo.On("AllLive", ctx).Return([]*models.RuleSlot{
		{Position: 1, ProposalID: &ruleID, Live: true},
	}, nil)
	mockProposalRepo.On("GetByID", ctx, ruleID).Return(rule, nil)
	// Share is 3500 but only 100 fits under the cap; the excess returns
	// to the pool headed for DAO funds
	mockProposalRepo.On("Update", ctx, mock.MatchedBy(func(p *models.Proposal) bool {
		return p.Balance == 1000
	})).Return(nil)
	mockTreasuryRepo.On("Update", ctx, mock.MatchedBy(func(tr *models.Treasury) bool {
		return tr.DAOFunds == 3000+(7000-100) && tr.Undistributed == 0
	})).Return(nil)
	mockUoW.On("Commit").Return(nil)

	err := service.Distribute(ctx)

	require.NoError(t, err)
	mockTreasuryRepo.AssertExpectations(t)
}

func TestTreasuryService_Distribute_Conservation(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockProposalRepo, mockRegistryRepo, mockTreasuryRepo, _ := newTreasuryMocks()
	service := NewTreasuryService(mockFactory, 100)

	idA, idB := int64(1), int64(2)
	ruleA := &models.Proposal{ID: idA, Kind: models.RuleKindPercentage, Percent: 33, Status: models.ProposalStatusAccepted}
	ruleB := &models.Proposal{ID: idB, Kind: models.RuleKindFixed, Value: 50, Percent: 40, Status: models.ProposalStatusAccepted}

	pool := int64(1003)
	treasury := &models.Treasury{Undistributed: pool, DAOFunds: 7}

	mockTreasuryRepo.On("GetForUpdate", ctx).Return(treasury, nil)
	mockRegistryRepo.On("AllLive", ctx).Return([]*models.RuleSlot{
		{Position: 0, ProposalID: &idA, Live: true},
		{Position: 1, ProposalID: &idB, Live: true},
	}, nil)
	mockProposalRepo.On("GetByID", ctx, idA).Return(ruleA, nil)
	mockProposalRepo.On("GetByID", ctx, idB).Return(ruleB, nil)
	mockProposalRepo.On("Update", ctx, mock.AnythingOfType("*models.Proposal")).Return(nil)

	var updated *models.Treasury
	mockTreasuryRepo.On("Update", ctx, mock.AnythingOfType("*models.Treasury")).Return(nil).Run(func(args mock.Arguments) {
		updated = args.Get(1).(*models.Treasury)
	})
	mockUoW.On("Commit").Return(nil)

	err := service.Distribute(ctx)
	require.NoError(t, err)

	// guaranteed + rule credits + leftover must equal the pre-call pool
	guaranteed := pool * models.GuaranteedDividendPercent / 100
	credits := ruleA.Balance + ruleB.Balance
	require.NotNil(t, updated)
	daoDelta := updated.DAOFunds - 7
	assert.Equal(t, pool, credits+daoDelta)
	assert.Equal(t, int64(0), updated.Undistributed)
	assert.GreaterOrEqual(t, daoDelta, guaranteed)
	assert.LessOrEqual(t, ruleB.Balance, ruleB.Value)
}

func TestTreasuryService_WithdrawFromRule_ZeroBalance(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockProposalRepo, _, mockTreasuryRepo, _ := newTreasuryMocks()
	service := NewTreasuryService(mockFactory, 100)

	mockTreasuryRepo.On("GetForUpdate", ctx).Return(&models.Treasury{}, nil)
	mockProposalRepo.On("GetByID", ctx, int64(3)).Return(&models.Proposal{
		ID:     3,
		Kind:   models.RuleKindPercentage,
		Status: models.ProposalStatusAccepted,
	}, nil)

	err := service.WithdrawFromRule(ctx, 3)

	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeZeroAmount))
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestTreasuryService_WithdrawFromRule_Percentage(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockProposalRepo, mockRegistryRepo, mockTreasuryRepo, mockPayoutRepo := newTreasuryMocks()
	service := NewTreasuryService(mockFactory, 100)

	rule := &models.Proposal{
		ID:       3,
		Kind:     models.RuleKindPercentage,
		Percent:  10,
		Balance:  450,
		Executor: "0xexec",
		Status:   models.ProposalStatusAccepted,
	}

	mockTreasuryRepo.On("GetForUpdate", ctx).Return(&models.Treasury{}, nil)
	mockProposalRepo.On("GetByID", ctx, int64(3)).Return(rule, nil)
	mockProposalRepo.On("Update", ctx, mock.MatchedBy(func(p *models.Proposal) bool {
		return p.Balance == 0 && p.Status == models.ProposalStatusAccepted
	})).Return(nil)
	mockPayoutRepo.On("Record", ctx, mock.MatchedBy(func(p *models.Payout) bool {
		return p.Recipient == "0xexec" &&
			p.Amount == 450 &&
			p.Reason == models.PayoutReasonRuleWithdrawal &&
			p.ReferenceID == 3
	})).Return(nil)
	mockUoW.On("Commit").Return(nil)

	err := service.WithdrawFromRule(ctx, 3)

	require.NoError(t, err)
	// Percentage rules keep accruing: the registry slot stays live
	mockRegistryRepo.AssertNotCalled(t, "Tombstone", mock.Anything, mock.Anything)
	mockPayoutRepo.AssertExpectations(t)
}

func TestTreasuryService_WithdrawFromRule_FixedBeforeTarget(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockProposalRepo, _, mockTreasuryRepo, _ := newTreasuryMocks()
	service := NewTreasuryService(mockFactory, 100)

	mockTreasuryRepo.On("GetForUpdate", ctx).Return(&models.Treasury{}, nil)
	mockProposalRepo.On("GetByID", ctx, int64(4)).Return(&models.Proposal{
		ID:      4,
		Kind:    models.RuleKindFixed,
		Value:   1000,
		Balance: 700,
		Status:  models.ProposalStatusAccepted,
	}, nil)

	err := service.WithdrawFromRule(ctx, 4)

	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeState))
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestTreasuryService_WithdrawFromRule_FixedAtTargetIsOneShot(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockProposalRepo, mockRegistryRepo, mockTreasuryRepo, mockPayoutRepo := newTreasuryMocks()
	service := NewTreasuryService(mockFactory, 100)

	ruleID := int64(4)
	rule := &models.Proposal{
		ID:       ruleID,
		Kind:     models.RuleKindFixed,
		Value:    1000,
		Balance:  1000,
		Executor: "0xexec",
		Status:   models.ProposalStatusAccepted,
	}

	mockTreasuryRepo.On("GetForUpdate", ctx).Return(&models.Treasury{}, nil)
	mockProposalRepo.On("GetByID", ctx, ruleID).Return(rule, nil)
	mockRegistryRepo.On("FindLiveByProposal", ctx, ruleID).Return(&models.RuleSlot{Position: 2, ProposalID: &ruleID, Live: true}, nil)
	mockRegistryRepo.On("Tombstone", ctx, int64(2)).Return(nil)
	mockProposalRepo.On("Update", ctx, mock.MatchedBy(func(p *models.Proposal) bool {
		return p.Balance == 0 && p.Status == models.ProposalStatusDeleted
	})).Return(nil)
	mockPayoutRepo.On("Record", ctx, mock.MatchedBy(func(p *models.Payout) bool {
		return p.Amount == 1000 && p.Recipient == "0xexec"
	})).Return(nil)
	mockUoW.On("Commit").Return(nil)

	err := service.WithdrawFromRule(ctx, 4)

	require.NoError(t, err)
	mockRegistryRepo.AssertExpectations(t)
	mockProposalRepo.AssertExpectations(t)
}
