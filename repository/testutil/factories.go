package testutil

import (
	"governor/models"
)

// CreateTestProposal creates a percentage proposal with default values
func CreateTestProposal(name string) *models.Proposal {
	return &models.Proposal{
		Name:      name,
		Kind:      models.RuleKindPercentage,
		Percent:   10,
		Status:    models.ProposalStatusCreated,
		Executor:  "0xexecutor",
		Initiator: "0xinitiator",
	}
}

// CreateTestFixedProposal creates a fixed proposal with a target value
func CreateTestFixedProposal(name string, value int64) *models.Proposal {
	p := CreateTestProposal(name)
	p.Kind = models.RuleKindFixed
	p.Value = value
	return p
}

// CreateTestHolder creates a holder record with a balance
func CreateTestHolder(address string, balance int64) *models.HolderRecord {
	return &models.HolderRecord{
		Address: address,
		Balance: balance,
	}
}
