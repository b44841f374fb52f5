package service

import (
	"context"

	"governor/events"
	"governor/models"

	"github.com/stretchr/testify/mock"
)

// MockProposalRepository is a mock implementation of ProposalRepository
type MockProposalRepository struct {
	mock.Mock
}

func (m *MockProposalRepository) Create(ctx context.Context, p *models.Proposal) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProposalRepository) GetByID(ctx context.Context, id int64) (*models.Proposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Proposal), args.Error(1)
}

func (m *MockProposalRepository) Update(ctx context.Context, p *models.Proposal) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// MockUpdateProposalRepository is a mock implementation of UpdateProposalRepository
type MockUpdateProposalRepository struct {
	mock.Mock
}

func (m *MockUpdateProposalRepository) Create(ctx context.Context, u *models.UpdateProposal) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUpdateProposalRepository) GetByID(ctx context.Context, id int64) (*models.UpdateProposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UpdateProposal), args.Error(1)
}

func (m *MockUpdateProposalRepository) Update(ctx context.Context, u *models.UpdateProposal) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

// MockDeleteProposalRepository is a mock implementation of DeleteProposalRepository
type MockDeleteProposalRepository struct {
	mock.Mock
}

func (m *MockDeleteProposalRepository) Create(ctx context.Context, d *models.DeleteProposal) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDeleteProposalRepository) GetByID(ctx context.Context, id int64) (*models.DeleteProposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeleteProposal), args.Error(1)
}

func (m *MockDeleteProposalRepository) Update(ctx context.Context, d *models.DeleteProposal) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

// MockRuleRegistryRepository is a mock implementation of RuleRegistryRepository
type MockRuleRegistryRepository struct {
	mock.Mock
}

func (m *MockRuleRegistryRepository) Append(ctx context.Context, proposalID int64) (int64, error) {
	args := m.Called(ctx, proposalID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRuleRegistryRepository) Get(ctx context.Context, position int64) (*models.RuleSlot, error) {
	args := m.Called(ctx, position)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RuleSlot), args.Error(1)
}

func (m *MockRuleRegistryRepository) FindLiveByProposal(ctx context.Context, proposalID int64) (*models.RuleSlot, error) {
	args := m.Called(ctx, proposalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RuleSlot), args.Error(1)
}

func (m *MockRuleRegistryRepository) Tombstone(ctx context.Context, position int64) error {
	args := m.Called(ctx, position)
	return args.Error(0)
}

func (m *MockRuleRegistryRepository) ListLive(ctx context.Context, offset, limit int64) ([]*models.RuleSlot, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RuleSlot), args.Error(1)
}

func (m *MockRuleRegistryRepository) AllLive(ctx context.Context) ([]*models.RuleSlot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RuleSlot), args.Error(1)
}

func (m *MockRuleRegistryRepository) Defragment(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockVoteRepository is a mock implementation of VoteRepository
type MockVoteRepository struct {
	mock.Mock
}

func (m *MockVoteRepository) Get(ctx context.Context, holder string, category models.VoteCategory, proposalID int64) (*models.VoteRecord, error) {
	args := m.Called(ctx, holder, category, proposalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VoteRecord), args.Error(1)
}

func (m *MockVoteRepository) Add(ctx context.Context, holder string, category models.VoteCategory, proposalID int64, votes int64) error {
	args := m.Called(ctx, holder, category, proposalID, votes)
	return args.Error(0)
}

// MockHolderRepository is a mock implementation of HolderRepository
type MockHolderRepository struct {
	mock.Mock
}

func (m *MockHolderRepository) Get(ctx context.Context, address string) (*models.HolderRecord, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.HolderRecord), args.Error(1)
}

func (m *MockHolderRepository) Upsert(ctx context.Context, h *models.HolderRecord) error {
	args := m.Called(ctx, h)
	return args.Error(0)
}

func (m *MockHolderRepository) Delete(ctx context.Context, address string) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func (m *MockHolderRepository) TotalSupply(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockTreasuryRepository is a mock implementation of TreasuryRepository
type MockTreasuryRepository struct {
	mock.Mock
}

func (m *MockTreasuryRepository) Get(ctx context.Context) (*models.Treasury, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Treasury), args.Error(1)
}

func (m *MockTreasuryRepository) GetForUpdate(ctx context.Context) (*models.Treasury, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Treasury), args.Error(1)
}

func (m *MockTreasuryRepository) Update(ctx context.Context, t *models.Treasury) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

// MockPayoutRepository is a mock implementation of PayoutRepository
type MockPayoutRepository struct {
	mock.Mock
}

func (m *MockPayoutRepository) Record(ctx context.Context, p *models.Payout) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPayoutRepository) ListByRecipient(ctx context.Context, recipient string, limit int) ([]*models.Payout, error) {
	args := m.Called(ctx, recipient, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payout), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// noopPublisher drops events; the default bus for mock units of work whose
// test does not assert on events
type noopPublisher struct{}

func (noopPublisher) Publish(events.Event) {}

// MockUnitOfWork is a mock implementation of UnitOfWork. Begin, Commit and
// Rollback are mocked; repository accessors return whatever was installed
// via SetRepositories.
type MockUnitOfWork struct {
	mock.Mock
	proposalRepo       ProposalRepository
	updateProposalRepo UpdateProposalRepository
	deleteProposalRepo DeleteProposalRepository
	ruleRegistryRepo   RuleRegistryRepository
	voteRepo           VoteRepository
	holderRepo         HolderRepository
	treasuryRepo       TreasuryRepository
	payoutRepo         PayoutRepository
	eventBus           EventPublisher
}

// SetRepositories installs the repositories the accessors hand out; nil is
// fine for repositories the test never touches
func (m *MockUnitOfWork) SetRepositories(
	proposals ProposalRepository,
	updates UpdateProposalRepository,
	deletes DeleteProposalRepository,
	registry RuleRegistryRepository,
	votes VoteRepository,
	holders HolderRepository,
	treasury TreasuryRepository,
	payouts PayoutRepository,
) {
	m.proposalRepo = proposals
	m.updateProposalRepo = updates
	m.deleteProposalRepo = deletes
	m.ruleRegistryRepo = registry
	m.voteRepo = votes
	m.holderRepo = holders
	m.treasuryRepo = treasury
	m.payoutRepo = payouts
}

// SetEventBus installs the publisher EventBus hands out
func (m *MockUnitOfWork) SetEventBus(bus EventPublisher) {
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) ProposalRepository() ProposalRepository {
	return m.proposalRepo
}

func (m *MockUnitOfWork) UpdateProposalRepository() UpdateProposalRepository {
	return m.updateProposalRepo
}

func (m *MockUnitOfWork) DeleteProposalRepository() DeleteProposalRepository {
	return m.deleteProposalRepo
}

func (m *MockUnitOfWork) RuleRegistryRepository() RuleRegistryRepository {
	return m.ruleRegistryRepo
}

func (m *MockUnitOfWork) VoteRepository() VoteRepository {
	return m.voteRepo
}

func (m *MockUnitOfWork) HolderRepository() HolderRepository {
	return m.holderRepo
}

func (m *MockUnitOfWork) TreasuryRepository() TreasuryRepository {
	return m.treasuryRepo
}

func (m *MockUnitOfWork) PayoutRepository() PayoutRepository {
	return m.payoutRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.eventBus == nil {
		return noopPublisher{}
	}
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
