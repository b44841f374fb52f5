package models

import (
	"time"
)

// UpdateProposal carries optional overrides for an accepted rule. Zero or
// empty fields mean "no change".
type UpdateProposal struct {
	ID         int64          `db:"id"`
	ProposalID int64          `db:"proposal_id"`
	Name       string         `db:"name"`
	Value      int64          `db:"value"`
	Percent    int64          `db:"percent"`
	TimeFrom   *time.Time     `db:"time_from"`
	TimeTo     *time.Time     `db:"time_to"`
	Executor   string         `db:"executor"`
	Status     ProposalStatus `db:"status"`
	Votes      int64          `db:"votes"`
	CreatedAt  time.Time      `db:"created_at"`
}

// IsNoop reports whether every override field is unset
func (u *UpdateProposal) IsNoop() bool {
	return u.Name == "" &&
		u.Value == 0 &&
		u.Percent == 0 &&
		u.TimeFrom == nil &&
		u.TimeTo == nil &&
		u.Executor == ""
}

// PercentDelta returns the signed budget adjustment applying this update
// to the target would cause, 0 when percent is unset or unchanged
func (u *UpdateProposal) PercentDelta(target *Proposal) int64 {
	if u.Percent == 0 || u.Percent == target.Percent {
		return 0
	}
	return u.Percent - target.Percent
}

// ApplyTo merges the set-and-different override fields into the target.
// Budget accounting for a percent change is the caller's responsibility.
func (u *UpdateProposal) ApplyTo(target *Proposal) {
	if u.Name != "" && u.Name != target.Name {
		target.Name = u.Name
	}
	if u.Value != 0 && u.Value != target.Value {
		target.Value = u.Value
	}
	if u.Percent != 0 && u.Percent != target.Percent {
		target.Percent = u.Percent
	}
	if u.TimeFrom != nil && !equalTimes(u.TimeFrom, target.TimeFrom) {
		target.TimeFrom = u.TimeFrom
	}
	if u.TimeTo != nil && !equalTimes(u.TimeTo, target.TimeTo) {
		target.TimeTo = u.TimeTo
	}
	if u.Executor != "" && u.Executor != target.Executor {
		target.Executor = u.Executor
	}
}

func equalTimes(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
