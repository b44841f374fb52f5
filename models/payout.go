package models

import (
	"time"
)

// PayoutReason classifies why funds left the treasury
type PayoutReason string

const (
	// PayoutReasonRuleWithdrawal is an executor collecting a rule balance
	PayoutReasonRuleWithdrawal PayoutReason = "rule_withdrawal"
	// PayoutReasonInterest is a holder collecting their epoch dividend
	PayoutReasonInterest PayoutReason = "interest"
)

// Payout is one append-only record of funds leaving the treasury.
// ReferenceID points at the proposal for rule withdrawals and is 0 for
// interest payouts.
type Payout struct {
	ID          int64        `db:"id"`
	Recipient   string       `db:"recipient"`
	Amount      int64        `db:"amount"`
	Reason      PayoutReason `db:"reason"`
	ReferenceID int64        `db:"reference_id"`
	CreatedAt   time.Time    `db:"created_at"`
}
