package service

import (
	"context"

	"governor/events"
	"governor/models"
)

// ProposalRepository defines the interface for creation proposal data access
type ProposalRepository interface {
	// Create appends a new proposal and fills in its ID and timestamp
	Create(ctx context.Context, p *models.Proposal) error

	// GetByID retrieves a proposal by its ID, returning nil when absent
	GetByID(ctx context.Context, id int64) (*models.Proposal, error)

	// Update persists every mutable proposal field
	Update(ctx context.Context, p *models.Proposal) error
}

// UpdateProposalRepository defines the interface for update proposal data access
type UpdateProposalRepository interface {
	// Create appends a new update proposal and fills in its ID and timestamp
	Create(ctx context.Context, u *models.UpdateProposal) error

	// GetByID retrieves an update proposal by its ID, returning nil when absent
	GetByID(ctx context.Context, id int64) (*models.UpdateProposal, error)

	// Update persists the status and tally of an update proposal
	Update(ctx context.Context, u *models.UpdateProposal) error
}

// DeleteProposalRepository defines the interface for delete proposal data access
type DeleteProposalRepository interface {
	// Create appends a new delete proposal and fills in its ID and timestamp
	Create(ctx context.Context, d *models.DeleteProposal) error

	// GetByID retrieves a delete proposal by its ID, returning nil when absent
	GetByID(ctx context.Context, id int64) (*models.DeleteProposal, error)

	// Update persists the status and tally of a delete proposal
	Update(ctx context.Context, d *models.DeleteProposal) error
}

// RuleRegistryRepository defines the interface for the rule registry: an
// index-stable sparse array of accepted proposal ids
type RuleRegistryRepository interface {
	// Append registers a proposal at the next free tail position
	Append(ctx context.Context, proposalID int64) (int64, error)

	// Get retrieves the slot at a position, nil when never occupied
	Get(ctx context.Context, position int64) (*models.RuleSlot, error)

	// FindLiveByProposal returns the live slot holding a proposal, nil when absent
	FindLiveByProposal(ctx context.Context, proposalID int64) (*models.RuleSlot, error)

	// Tombstone marks a slot dead without shifting positions
	Tombstone(ctx context.Context, position int64) error

	// ListLive returns a bounded page of live slots in registry order
	ListLive(ctx context.Context, offset, limit int64) ([]*models.RuleSlot, error)

	// AllLive returns every live slot in registry order
	AllLive(ctx context.Context) ([]*models.RuleSlot, error)

	// Defragment compacts live slots to the front preserving order
	Defragment(ctx context.Context) error
}

// VoteRepository defines the interface for cumulative vote records
type VoteRepository interface {
	// Get retrieves the record for (holder, category, proposal), nil when absent
	Get(ctx context.Context, holder string, category models.VoteCategory, proposalID int64) (*models.VoteRecord, error)

	// Add increments the cumulative votes, inserting on first vote
	Add(ctx context.Context, holder string, category models.VoteCategory, proposalID int64, votes int64) error
}

// HolderRepository defines the interface for token holder records
type HolderRepository interface {
	// Get retrieves a holder record, nil when unknown
	Get(ctx context.Context, address string) (*models.HolderRecord, error)

	// Upsert writes the full holder record, creating it when absent
	Upsert(ctx context.Context, h *models.HolderRecord) error

	// Delete removes a holder record entirely
	Delete(ctx context.Context, address string) error

	// TotalSupply sums all holder balances
	TotalSupply(ctx context.Context) (int64, error)
}

// TreasuryRepository defines the interface for the global counters row
type TreasuryRepository interface {
	// Get reads the treasury counters
	Get(ctx context.Context) (*models.Treasury, error)

	// GetForUpdate reads the counters under a row lock, serializing
	// mutating operations
	GetForUpdate(ctx context.Context) (*models.Treasury, error)

	// Update persists the treasury counters
	Update(ctx context.Context, t *models.Treasury) error
}

// PayoutRepository defines the interface for the payout audit log
type PayoutRepository interface {
	// Record appends a payout and fills in its ID and timestamp
	Record(ctx context.Context, p *models.Payout) error

	// ListByRecipient returns a recipient's payouts, most recent first
	ListByRecipient(ctx context.Context, recipient string, limit int) ([]*models.Payout, error)
}

// UnitOfWork represents a transactional boundary for operations. Every
// public service operation runs inside exactly one.
type UnitOfWork interface {
	// Begin starts the unit of work
	Begin(ctx context.Context) error

	// Commit commits all changes made within this unit of work and
	// flushes pending events
	Commit() error

	// Rollback discards all changes made within this unit of work
	Rollback() error

	// ProposalRepository returns a proposal repository bound to this transaction
	ProposalRepository() ProposalRepository

	// UpdateProposalRepository returns an update proposal repository bound to this transaction
	UpdateProposalRepository() UpdateProposalRepository

	// DeleteProposalRepository returns a delete proposal repository bound to this transaction
	DeleteProposalRepository() DeleteProposalRepository

	// RuleRegistryRepository returns a rule registry repository bound to this transaction
	RuleRegistryRepository() RuleRegistryRepository

	// VoteRepository returns a vote repository bound to this transaction
	VoteRepository() VoteRepository

	// HolderRepository returns a holder repository bound to this transaction
	HolderRepository() HolderRepository

	// TreasuryRepository returns a treasury repository bound to this transaction
	TreasuryRepository() TreasuryRepository

	// PayoutRepository returns a payout repository bound to this transaction
	PayoutRepository() PayoutRepository

	// EventBus returns the transactional event bus; published events are
	// emitted only after a successful commit
	EventBus() EventPublisher
}

// UnitOfWorkFactory creates new units of work
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// CreateProposalInput carries the caller-supplied fields of a new proposal
type CreateProposalInput struct {
	Name     string
	Kind     models.RuleKind
	Value    int64
	Percent  int64
	Executor string
	TimeFrom int64 // unix seconds, 0 = unbounded
	TimeTo   int64 // unix seconds, 0 = unbounded
}

// UpdateProposalInput carries optional overrides; zero values mean "no change"
type UpdateProposalInput struct {
	ProposalID int64
	Name       string
	Value      int64
	Percent    int64
	Executor   string
	TimeFrom   int64
	TimeTo     int64
}

// VoteStatus is the tally and status of a proposal in one category
type VoteStatus struct {
	Votes  int64
	Status models.ProposalStatus
}

// GovernanceService defines the proposal lifecycle and voting operations
type GovernanceService interface {
	// EnsureFoundingRule idempotently seeds the protected rule at registry
	// position 0
	EnsureFoundingRule(ctx context.Context, executor string, percent int64) error

	// CreateProposal appends a new creation proposal
	CreateProposal(ctx context.Context, initiator string, in CreateProposalInput) (*models.Proposal, error)

	// ProposeUpdate appends an update proposal against an accepted rule
	ProposeUpdate(ctx context.Context, initiator string, in UpdateProposalInput) (*models.UpdateProposal, error)

	// ProposeDelete appends a delete proposal against a registry position
	ProposeDelete(ctx context.Context, initiator string, ruleIndex int64) (*models.DeleteProposal, error)

	// Vote casts votes on a proposal in a category and attempts activation
	Vote(ctx context.Context, holder string, proposalID int64, votes int64, category models.VoteCategory) error

	// Defragment compacts the rule registry
	Defragment(ctx context.Context) error

	// GetProposal retrieves a creation proposal
	GetProposal(ctx context.Context, id int64) (*models.Proposal, error)

	// GetUpdateProposal retrieves an update proposal
	GetUpdateProposal(ctx context.Context, id int64) (*models.UpdateProposal, error)

	// GetDeleteProposal retrieves a delete proposal
	GetDeleteProposal(ctx context.Context, id int64) (*models.DeleteProposal, error)

	// GetVoteStatus returns the tally and status of a proposal in a category
	GetVoteStatus(ctx context.Context, proposalID int64, category models.VoteCategory) (*VoteStatus, error)

	// GetCastVotes returns a holder's cumulative votes on (proposal, category)
	GetCastVotes(ctx context.Context, holder string, proposalID int64, category models.VoteCategory) (int64, error)

	// ListRules returns a bounded page of live registry slots
	ListRules(ctx context.Context, offset, limit int64) ([]*models.RuleSlot, error)
}

// TreasuryService defines the fund distribution operations
type TreasuryService interface {
	// AcceptFunds adds revenue to the undistributed pool
	AcceptFunds(ctx context.Context, from string, amount int64) error

	// Distribute splits the undistributed pool between the guaranteed
	// dividend reserve and the live rules
	Distribute(ctx context.Context) error

	// WithdrawFromRule pays a rule's balance out to its executor
	WithdrawFromRule(ctx context.Context, proposalID int64) error
}

// InterestService defines the interest epoch operations
type InterestService interface {
	// EnsureEpochLength persists the configured epoch length into the
	// treasury row at bootstrap
	EnsureEpochLength(ctx context.Context, seconds int64) error

	// BeforeBalanceChange is the hook invoked before every transfer for
	// both parties
	BeforeBalanceChange(ctx context.Context, holder string) error

	// DivideUpInterest closes the epoch, moving DAO funds into the
	// withdrawable interest pool
	DivideUpInterest(ctx context.Context) error

	// HolderInterest computes a holder's withdrawable dividend
	HolderInterest(ctx context.Context, holder string) (int64, error)

	// WithdrawInterest pays a holder's dividend out
	WithdrawInterest(ctx context.Context, holder string) error
}

// TokenLedger is the fungible-token collaborator: balance lookup and the
// transfer primitive the treasury pays out through
type TokenLedger interface {
	// BalanceOf returns a holder's current balance
	BalanceOf(ctx context.Context, holder string) (int64, error)

	// TotalSupply returns the sum of all balances
	TotalSupply(ctx context.Context) (int64, error)

	// Transfer moves amount between holders
	Transfer(ctx context.Context, from, to string, amount int64) error
}
