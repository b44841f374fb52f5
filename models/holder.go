package models

import (
	"time"
)

// HolderRecord is a token holder's balance plus the bookkeeping that
// voting eligibility and dividend accounting depend on
type HolderRecord struct {
	Address           string     `db:"address"`
	Balance           int64      `db:"balance"`
	BalanceSnapshot   int64      `db:"balance_snapshot"`
	VotingChangedAt   *time.Time `db:"voting_changed_at"`
	InterestChangedAt *time.Time `db:"interest_changed_at"`
	LastWithdrawalAt  *time.Time `db:"last_withdrawal_at"`
}

// ChangedSince reports whether the holder's balance changed after t,
// which disqualifies them from voting on proposals created before the
// change
func (h *HolderRecord) ChangedSince(t time.Time) bool {
	return h.VotingChangedAt != nil && h.VotingChangedAt.After(t)
}

// SnapshotCurrent freezes the current balance as the dividend-relevant
// one and stamps the interest-change time
func (h *HolderRecord) SnapshotCurrent(now time.Time) {
	h.BalanceSnapshot = h.Balance
	h.InterestChangedAt = &now
}

// WithdrewSince reports whether the holder already collected interest at
// or after the given epoch boundary
func (h *HolderRecord) WithdrewSince(boundary time.Time) bool {
	return h.LastWithdrawalAt != nil && !h.LastWithdrawalAt.Before(boundary)
}

// EffectiveBalance is the balance the holder's dividend is computed on:
// the frozen snapshot when their balance changed during the current
// epoch, the live balance otherwise
func (h *HolderRecord) EffectiveBalance(boundary time.Time) int64 {
	if h.InterestChangedAt != nil && !h.InterestChangedAt.Before(boundary) {
		return h.BalanceSnapshot
	}
	return h.Balance
}
