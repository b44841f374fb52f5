package service

import (
	"context"
	"testing"
	"time"

	"governor/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const epochSeconds = int64(7776000)

func newInterestMocks() (*MockUnitOfWork, *MockUnitOfWorkFactory, *MockHolderRepository, *MockTreasuryRepository, *MockPayoutRepository) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	mockHolderRepo := new(MockHolderRepository)
	mockTreasuryRepo := new(MockTreasuryRepository)
	mockPayoutRepo := new(MockPayoutRepository)

	mockUoW.SetRepositories(nil, nil, nil, nil, nil, mockHolderRepo, mockTreasuryRepo, mockPayoutRepo)
	mockFactory.On("Create").Return(mockUoW)
	mockUoW.On("Begin", mock.Anything).Return(nil)
	mockUoW.On("Rollback").Return(nil)

	return mockUoW, mockFactory, mockHolderRepo, mockTreasuryRepo, mockPayoutRepo
}

func TestInterestService_EnsureEpochLength_PersistsConfiguredLength(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, mockTreasuryRepo, _ := newInterestMocks()
	service := NewInterestService(mockFactory)

	mockTreasuryRepo.On("GetForUpdate", ctx).Return(&models.Treasury{
		EpochLengthSeconds: epochSeconds,
	}, nil)
	mockTreasuryRepo.On("Update", ctx, mock.MatchedBy(func(tr *models.Treasury) bool {
		return tr.EpochLengthSeconds == 3600
	})).Return(nil)
	mockUoW.On("Commit").Return(nil)

	err := service.EnsureEpochLength(ctx, 3600)

	require.NoError(t, err)
	mockTreasuryRepo.AssertExpectations(t)
}

func TestInterestService_EnsureEpochLength_NoopWhenUnchanged(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, mockTreasuryRepo, _ := newInterestMocks()
	service := NewInterestService(mockFactory)

	mockTreasuryRepo.On("GetForUpdate", ctx).Return(&models.Treasury{
		EpochLengthSeconds: epochSeconds,
	}, nil)
	mockUoW.On("Commit").Return(nil)

	err := service.EnsureEpochLength(ctx, epochSeconds)

	require.NoError(t, err)
	mockTreasuryRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestInterestService_EnsureEpochLength_RejectsNonPositive(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, _, _ := newInterestMocks()
	service := NewInterestService(mockFactory)

	err := service.EnsureEpochLength(ctx, 0)

	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeValidation))
	mockUoW.AssertNotCalled(t, "Begin", mock.Anything)
}

func TestInterestService_DivideUpInterest_TooEarly(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, mockTreasuryRepo, _ := newInterestMocks()
	service := NewInterestService(mockFactory)

	mockTreasuryRepo.On("GetForUpdate", ctx).Return(&models.Treasury{
		DAOFunds:           9300,
		LastEpochAt:        time.Now().Add(-time.Hour),
		EpochLengthSeconds: epochSeconds,
	}, nil)

	err := service.DivideUpInterest(ctx)

	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeTooEarly))
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestInterestService_DivideUpInterest_ClosesEpoch(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, _, mockTreasuryRepo, _ := newInterestMocks()
	service := NewInterestService(mockFactory)

	lastEpoch := time.Now().Add(-time.Duration(epochSeconds+100) * time.Second)
	treasury := &models.Treasury{
		DAOFunds:           9300,
		InterestRemaining:  200,
		LastEpochAt:        lastEpoch,
		EpochLengthSeconds: epochSeconds,
	}

	mockTreasuryRepo.On("GetForUpdate", ctx).Return(treasury, nil)
	// Unclaimed dividend from the prior epoch rolls into the new pool
	mockTreasuryRepo.On("Update", ctx, mock.MatchedBy(func(tr *models.Treasury) bool {
		return tr.InterestTotal == 9500 &&
			tr.InterestRemaining == 9500 &&
			tr.DAOFunds == 0 &&
			tr.LastEpochAt.After(lastEpoch)
	})).Return(nil)
	mockUoW.On("Commit").Return(nil)

	err := service.DivideUpInterest(ctx)

	require.NoError(t, err)
	mockTreasuryRepo.AssertExpectations(t)
}

func TestInterestService_HolderInterest_ProRata(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockHolderRepo, mockTreasuryRepo, _ := newInterestMocks()
	service := NewInterestService(mockFactory)

	mockTreasuryRepo.On("Get", ctx).Return(&models.Treasury{
		InterestTotal: 9500,
		LastEpochAt:   time.Now().Add(-time.Hour),
	}, nil)
	mockHolderRepo.On("Get", ctx, "0xa").Return(&models.HolderRecord{Address: "0xa", Balance: 60}, nil)
	mockHolderRepo.On("TotalSupply", ctx).Return(int64(100), nil)
	mockUoW.On("Commit").Return(nil)

	amount, err := service.HolderInterest(ctx, "0xa")

	require.NoError(t, err)
	assert.Equal(t, int64(5700), amount)
}

func TestInterestService_HolderInterest_ZeroAfterWithdrawal(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockHolderRepo, mockTreasuryRepo, _ := newInterestMocks()
	service := NewInterestService(mockFactory)

	boundary := time.Now().Add(-time.Hour)
	withdrewAt := time.Now().Add(-time.Minute)

	mockTreasuryRepo.On("Get", ctx).Return(&models.Treasury{
		InterestTotal: 9500,
		LastEpochAt:   boundary,
	}, nil)
	mockHolderRepo.On("Get", ctx, "0xa").Return(&models.HolderRecord{
		Address:          "0xa",
		Balance:          60,
		LastWithdrawalAt: &withdrewAt,
	}, nil)
	mockUoW.On("Commit").Return(nil)

	amount, err := service.HolderInterest(ctx, "0xa")

	require.NoError(t, err)
	assert.Equal(t, int64(0), amount)
}

func TestInterestService_HolderInterest_ResumesAfterNextEpochClose(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockHolderRepo, mockTreasuryRepo, _ := newInterestMocks()
	service := NewInterestService(mockFactory)

	// The holder collected last epoch's dividend, then a new epoch closed:
	// the stale withdrawal stamp no longer blocks the payout
	boundary := time.Now().Add(-time.Hour)
	withdrewAt := boundary.Add(-time.Minute)

	mockTreasuryRepo.On("Get", ctx).Return(&models.Treasury{
		InterestTotal: 9500,
		LastEpochAt:   boundary,
	}, nil)
	mockHolderRepo.On("Get", ctx, "0xa").Return(&models.HolderRecord{
		Address:          "0xa",
		Balance:          60,
		LastWithdrawalAt: &withdrewAt,
	}, nil)
	mockHolderRepo.On("TotalSupply", ctx).Return(int64(100), nil)
	mockUoW.On("Commit").Return(nil)

	amount, err := service.HolderInterest(ctx, "0xa")

	require.NoError(t, err)
	assert.Equal(t, int64(5700), amount)
}

func TestInterestService_HolderInterest_UsesSnapshotForMidEpochChange(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockHolderRepo, mockTreasuryRepo, _ := newInterestMocks()
	service := NewInterestService(mockFactory)

	boundary := time.Now().Add(-time.Hour)
	changedAt := time.Now().Add(-time.Minute)

	mockTreasuryRepo.On("Get", ctx).Return(&models.Treasury{
		InterestTotal: 9500,
		LastEpochAt:   boundary,
	}, nil)
	// The holder sold down to 10 mid-epoch; the dividend pays on the
	// frozen pre-change balance of 60
	mockHolderRepo.On("Get", ctx, "0xa").Return(&models.HolderRecord{
		Address:           "0xa",
		Balance:           10,
		BalanceSnapshot:   60,
		InterestChangedAt: &changedAt,
	}, nil)
	mockHolderRepo.On("TotalSupply", ctx).Return(int64(100), nil)
	mockUoW.On("Commit").Return(nil)

	amount, err := service.HolderInterest(ctx, "0xa")

	require.NoError(t, err)
	assert.Equal(t, int64(5700), amount)
}

func TestInterestService_WithdrawInterest_NothingToWithdraw(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockHolderRepo, mockTreasuryRepo, _ := newInterestMocks()
	service := NewInterestService(mockFactory)

	mockTreasuryRepo.On("GetForUpdate", ctx).Return(&models.Treasury{
		InterestTotal: 9500,
		LastEpochAt:   time.Now().Add(-time.Hour),
	}, nil)
	mockHolderRepo.On("Get", ctx, "0xnobody").Return(nil, nil)

	err := service.WithdrawInterest(ctx, "0xnobody")

	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeZeroAmount))
	mockUoW.AssertNotCalled(t, "Commit")
}

func TestInterestService_WithdrawInterest_PaysAndStamps(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockHolderRepo, mockTreasuryRepo, mockPayoutRepo := newInterestMocks()
	service := NewInterestService(mockFactory)

	treasury := &models.Treasury{
		InterestTotal:     9500,
		InterestRemaining: 9500,
		LastEpochAt:       time.Now().Add(-time.Hour),
	}
	holder := &models.HolderRecord{Address: "0xa", Balance: 60}

	mockTreasuryRepo.On("GetForUpdate", ctx).Return(treasury, nil)
	mockHolderRepo.On("Get", ctx, "0xa").Return(holder, nil)
	mockHolderRepo.On("TotalSupply", ctx).Return(int64(100), nil)
	mockHolderRepo.On("Upsert", ctx, mock.MatchedBy(func(h *models.HolderRecord) bool {
		return h.Address == "0xa" && h.LastWithdrawalAt != nil
	})).Return(nil)
	mockTreasuryRepo.On("Update", ctx, mock.MatchedBy(func(tr *models.Treasury) bool {
		return tr.InterestRemaining == 9500-5700
	})).Return(nil)
	mockPayoutRepo.On("Record", ctx, mock.MatchedBy(func(p *models.Payout) bool {
		return p.Recipient == "0xa" && p.Amount == 5700 && p.Reason == models.PayoutReasonInterest
	})).Return(nil)
	mockUoW.On("Commit").Return(nil)

	err := service.WithdrawInterest(ctx, "0xa")

	require.NoError(t, err)
	mockHolderRepo.AssertExpectations(t)
	mockTreasuryRepo.AssertExpectations(t)
	mockPayoutRepo.AssertExpectations(t)
}

func TestInterestService_WithdrawInterest_RemovesEmptiedHolder(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockHolderRepo, mockTreasuryRepo, mockPayoutRepo := newInterestMocks()
	service := NewInterestService(mockFactory)

	boundary := time.Now().Add(-time.Hour)
	changedAt := time.Now().Add(-time.Minute)

	treasury := &models.Treasury{
		InterestTotal:     1000,
		InterestRemaining: 1000,
		LastEpochAt:       boundary,
	}
	// Sold everything mid-epoch; still owed interest on the snapshot
	holder := &models.HolderRecord{
		Address:           "0xgone",
		Balance:           0,
		BalanceSnapshot:   50,
		InterestChangedAt: &changedAt,
	}

	mockTreasuryRepo.On("GetForUpdate", ctx).Return(treasury, nil)
	mockHolderRepo.On("Get", ctx, "0xgone").Return(holder, nil)
	mockHolderRepo.On("TotalSupply", ctx).Return(int64(100), nil)
	mockHolderRepo.On("Delete", ctx, "0xgone").Return(nil)
	mockTreasuryRepo.On("Update", ctx, mock.AnythingOfType("*models.Treasury")).Return(nil)
	mockPayoutRepo.On("Record", ctx, mock.AnythingOfType("*models.Payout")).Return(nil)
	mockUoW.On("Commit").Return(nil)

	err := service.WithdrawInterest(ctx, "0xgone")

	require.NoError(t, err)
	mockHolderRepo.AssertExpectations(t)
	mockHolderRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestInterestService_BeforeBalanceChange_SnapshotsOncePerEpoch(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockHolderRepo, mockTreasuryRepo, _ := newInterestMocks()
	service := NewInterestService(mockFactory)

	boundary := time.Now().Add(-time.Hour)
	beforeBoundary := boundary.Add(-time.Hour)

	mockTreasuryRepo.On("GetForUpdate", ctx).Return(&models.Treasury{LastEpochAt: boundary}, nil)
	mockHolderRepo.On("Get", ctx, "0xa").Return(&models.HolderRecord{
		Address:           "0xa",
		Balance:           60,
		BalanceSnapshot:   10,
		InterestChangedAt: &beforeBoundary,
	}, nil)
	// First change of this epoch: the pre-change balance gets frozen
	mockHolderRepo.On("Upsert", ctx, mock.MatchedBy(func(h *models.HolderRecord) bool {
		return h.BalanceSnapshot == 60 &&
			h.InterestChangedAt != nil && h.InterestChangedAt.After(boundary) &&
			h.VotingChangedAt != nil
	})).Return(nil)
	mockUoW.On("Commit").Return(nil)

	err := service.BeforeBalanceChange(ctx, "0xa")

	require.NoError(t, err)
	mockHolderRepo.AssertExpectations(t)
}

func TestInterestService_BeforeBalanceChange_SecondChangeKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	mockUoW, mockFactory, mockHolderRepo, mockTreasuryRepo, _ := newInterestMocks()
	service := NewInterestService(mockFactory)

	boundary := time.Now().Add(-time.Hour)
	afterBoundary := time.Now().Add(-time.Minute)

	mockTreasuryRepo.On("GetForUpdate", ctx).Return(&models.Treasury{LastEpochAt: boundary}, nil)
	mockHolderRepo.On("Get", ctx, "0xa").Return(&models.HolderRecord{
		Address:           "0xa",
		Balance:           25,
		BalanceSnapshot:   60,
		InterestChangedAt: &afterBoundary,
	}, nil)
	// Already snapshotted this epoch: the frozen 60 must survive
	mockHolderRepo.On("Upsert", ctx, mock.MatchedBy(func(h *models.HolderRecord) bool {
		return h.BalanceSnapshot == 60
	})).Return(nil)
	mockUoW.On("Commit").Return(nil)

	err := service.BeforeBalanceChange(ctx, "0xa")

	require.NoError(t, err)
	mockHolderRepo.AssertExpectations(t)
}
