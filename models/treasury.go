package models

import (
	"time"
)

// Treasury is the single row of global counters. Every mutating engine
// operation locks it, which serializes operations.
type Treasury struct {
	BudgetUsed         int64     `db:"budget_used"`
	DAOFunds           int64     `db:"dao_funds"`
	Undistributed      int64     `db:"undistributed"`
	InterestTotal      int64     `db:"interest_total"`
	InterestRemaining  int64     `db:"interest_remaining"`
	LastEpochAt        time.Time `db:"last_epoch_at"`
	EpochLengthSeconds int64     `db:"epoch_length_seconds"`
}

// CanReserveBudget reports whether claiming percent more of the budget
// stays within the 100-point cap. Negative percent (a release) always fits.
func (t *Treasury) CanReserveBudget(percent int64) bool {
	return t.BudgetUsed+percent <= MaxBudgetPercent
}

// ReserveBudget adjusts the budget counter by a signed delta
func (t *Treasury) ReserveBudget(percent int64) {
	t.BudgetUsed += percent
}

// EpochElapsed reports whether a full epoch has passed since the last
// boundary
func (t *Treasury) EpochElapsed(now time.Time) bool {
	return !now.Before(t.LastEpochAt.Add(time.Duration(t.EpochLengthSeconds) * time.Second))
}

// RuleSlot is one position in the rule registry. A dead slot keeps its
// position so live positions never shift except during defragmentation.
type RuleSlot struct {
	Position   int64  `db:"position"`
	ProposalID *int64 `db:"proposal_id"`
	Live       bool   `db:"live"`
}
