package events

import (
	"context"
	"sync"

	"governor/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeProposalCreated   EventType = "proposal_created"
	EventTypeUpdateProposed    EventType = "update_proposed"
	EventTypeDeleteProposed    EventType = "delete_proposed"
	EventTypeVoteCast          EventType = "vote_cast"
	EventTypeProposalAccepted  EventType = "proposal_accepted"
	EventTypeRuleUpdated       EventType = "rule_updated"
	EventTypeRuleDeleted       EventType = "rule_deleted"
	EventTypeFundsAccepted     EventType = "funds_accepted"
	EventTypeRuleReplenished   EventType = "rule_replenished"
	EventTypeFundsDistributed  EventType = "funds_distributed"
	EventTypeRuleWithdrawal    EventType = "rule_withdrawal"
	EventTypeEpochClosed       EventType = "epoch_closed"
	EventTypeInterestWithdrawn EventType = "interest_withdrawn"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// ProposalCreatedEvent represents a newly appended creation proposal
type ProposalCreatedEvent struct {
	ProposalID int64
	Initiator  string
	Kind       models.RuleKind
	Percent    int64
	Value      int64
}

func (e ProposalCreatedEvent) Type() EventType {
	return EventTypeProposalCreated
}

// UpdateProposedEvent represents a newly appended update proposal
type UpdateProposedEvent struct {
	UpdateProposalID int64
	TargetProposalID int64
	Initiator        string
}

func (e UpdateProposedEvent) Type() EventType {
	return EventTypeUpdateProposed
}

// DeleteProposedEvent represents a newly appended delete proposal
type DeleteProposedEvent struct {
	DeleteProposalID int64
	RuleIndex        int64
	Initiator        string
}

func (e DeleteProposedEvent) Type() EventType {
	return EventTypeDeleteProposed
}

// VoteCastEvent represents votes added to a proposal tally
type VoteCastEvent struct {
	ProposalID int64
	Category   models.VoteCategory
	Holder     string
	Votes      int64
	Tally      int64
}

func (e VoteCastEvent) Type() EventType {
	return EventTypeVoteCast
}

// ProposalAcceptedEvent represents a creation proposal reaching quorum and
// entering the rule registry
type ProposalAcceptedEvent struct {
	ProposalID int64
	RuleIndex  int64
}

func (e ProposalAcceptedEvent) Type() EventType {
	return EventTypeProposalAccepted
}

// RuleUpdatedEvent represents an accepted update proposal being applied
type RuleUpdatedEvent struct {
	UpdateProposalID int64
	TargetProposalID int64
}

func (e RuleUpdatedEvent) Type() EventType {
	return EventTypeRuleUpdated
}

// RuleDeletedEvent represents a rule tombstoned out of the registry
type RuleDeletedEvent struct {
	DeleteProposalID int64
	RuleIndex        int64
	ProposalID       int64
}

func (e RuleDeletedEvent) Type() EventType {
	return EventTypeRuleDeleted
}

// FundsAcceptedEvent represents revenue added to the undistributed pool
type FundsAcceptedEvent struct {
	From   string
	Amount int64
}

func (e FundsAcceptedEvent) Type() EventType {
	return EventTypeFundsAccepted
}

// RuleReplenishedEvent represents one rule credited during a distribution
type RuleReplenishedEvent struct {
	ProposalID int64
	Credited   int64
	Balance    int64
}

func (e RuleReplenishedEvent) Type() EventType {
	return EventTypeRuleReplenished
}

// FundsDistributedEvent is the aggregate summary of one distribution pass
type FundsDistributedEvent struct {
	Pool       int64
	Guaranteed int64
	Credited   int64
	ToDAOFunds int64
}

func (e FundsDistributedEvent) Type() EventType {
	return EventTypeFundsDistributed
}

// RuleWithdrawalEvent represents a payout from a rule balance to its executor
type RuleWithdrawalEvent struct {
	ProposalID int64
	Executor   string
	Amount     int64
	Removed    bool
}

func (e RuleWithdrawalEvent) Type() EventType {
	return EventTypeRuleWithdrawal
}

// EpochClosedEvent represents DAO funds moving into the withdrawable
// interest pool
type EpochClosedEvent struct {
	InterestTotal int64
	ClosedAt      int64
}

func (e EpochClosedEvent) Type() EventType {
	return EventTypeEpochClosed
}

// InterestWithdrawnEvent represents a holder collecting their dividend
type InterestWithdrawnEvent struct {
	Holder string
	Amount int64
}

func (e InterestWithdrawnEvent) Type() EventType {
	return EventTypeInterestWithdrawn
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make([]Handler, 0)
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Call handlers asynchronously to avoid blocking the operation that
	// produced the event
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds pending events coupled to a unit of work and
// flushes them to the underlying bus only after a successful commit, so
// subscribers never observe events from rolled-back operations.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

// NewTransactionalBus creates a transactional bus wrapping the real one
func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes an event until Flush
func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits all pending events; called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Events are processed independently of the transaction lifecycle, so
	// emission uses a background context rather than the tx-scoped one.
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events; called after rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
