package models

import (
	"time"
)

// VoteCategory identifies which proposal collection a vote targets
type VoteCategory string

const (
	VoteCategoryCreate VoteCategory = "create"
	VoteCategoryUpdate VoteCategory = "update"
	VoteCategoryDelete VoteCategory = "delete"
)

// ValidCategory reports whether c is a known vote category
func ValidCategory(c VoteCategory) bool {
	switch c {
	case VoteCategoryCreate, VoteCategoryUpdate, VoteCategoryDelete:
		return true
	}
	return false
}

// VoteRecord tracks the cumulative votes one holder has cast on one
// proposal in one category. The counter never decreases and is bounded by
// the holder's current balance.
type VoteRecord struct {
	HolderAddress string       `db:"holder_address"`
	Category      VoteCategory `db:"category"`
	ProposalID    int64        `db:"proposal_id"`
	Votes         int64        `db:"votes"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

// Quorum is the tally a proposal needs to activate
func Quorum(totalSupply int64) int64 {
	return totalSupply*50/100 + 1
}

// MeetsQuorum tests the activation condition after adding votes to a tally
func MeetsQuorum(tally, totalSupply int64) bool {
	return tally >= Quorum(totalSupply)
}

// EligibleInitiator reports whether a holder may open proposals: non-zero
// balance of at least 3% of total supply
func EligibleInitiator(balance, totalSupply int64) bool {
	return balance > 0 && balance*100 >= totalSupply*3
}
