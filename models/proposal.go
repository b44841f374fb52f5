package models

import (
	"time"
)

// RuleKind represents how an accepted rule claims treasury funds
type RuleKind string

const (
	// RuleKindFixed accumulates until its balance reaches Value, then pays out once
	RuleKindFixed RuleKind = "fixed"
	// RuleKindPercentage claims a recurring budget share with no cap
	RuleKindPercentage RuleKind = "percentage"
)

// ProposalStatus represents the lifecycle state of a proposal
type ProposalStatus string

const (
	ProposalStatusCreated  ProposalStatus = "created"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusDeleted  ProposalStatus = "deleted"
	ProposalStatusCanceled ProposalStatus = "canceled"
)

const (
	// MaxBudgetPercent is the total budget available to percentage rules
	MaxBudgetPercent int64 = 100
	// GuaranteedDividendPercent is reserved for holders off the top of
	// every distribution, bypassing rule allocation entirely
	GuaranteedDividendPercent int64 = 30
)

// Proposal represents a creation proposal and, once accepted, a rule.
// Percent is dual-purpose: it is the budget share claimed by Percentage
// rules AND the distribution weight for rules of both kinds; Value caps
// Fixed rules only.
type Proposal struct {
	ID        int64          `db:"id"`
	Name      string         `db:"name"`
	Kind      RuleKind       `db:"kind"`
	Value     int64          `db:"value"`
	Percent   int64          `db:"percent"`
	TimeFrom  *time.Time     `db:"time_from"`
	TimeTo    *time.Time     `db:"time_to"`
	Status    ProposalStatus `db:"status"`
	Votes     int64          `db:"votes"`
	Executor  string         `db:"executor"`
	Initiator string         `db:"initiator"`
	Balance   int64          `db:"balance"`
	CreatedAt time.Time      `db:"created_at"`
}

// Share computes the rule's claim on a distribution remainder using
// Percent as the weight, regardless of kind
func (p *Proposal) Share(remainder int64) int64 {
	return remainder * p.Percent / 100
}

// Credit adds a distribution share to the rule balance, clamping Fixed
// rules at their Value target. Returns the amount actually absorbed; the
// caller returns the rest to the undistributed total.
func (p *Proposal) Credit(share int64) int64 {
	if p.Kind == RuleKindFixed && p.Balance+share > p.Value {
		absorbed := p.Value - p.Balance
		p.Balance = p.Value
		return absorbed
	}
	p.Balance += share
	return share
}

// ReadyForFixedWithdrawal reports whether a Fixed rule has accumulated
// exactly its target and may pay out
func (p *Proposal) ReadyForFixedWithdrawal() bool {
	return p.Kind == RuleKindFixed && p.Balance == p.Value
}

// ClaimsBudget reports whether this proposal's percent counts against the
// global budget
func (p *Proposal) ClaimsBudget() bool {
	return p.Kind == RuleKindPercentage
}
