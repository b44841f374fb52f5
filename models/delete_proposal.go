package models

import (
	"time"
)

// FoundingRuleIndex is the protected registry position that can never be
// targeted by a delete proposal
const FoundingRuleIndex int64 = 0

// DeleteProposal targets a rule registry position for removal
type DeleteProposal struct {
	ID        int64          `db:"id"`
	RuleIndex int64          `db:"rule_index"`
	Status    ProposalStatus `db:"status"`
	Votes     int64          `db:"votes"`
	CreatedAt time.Time      `db:"created_at"`
}
