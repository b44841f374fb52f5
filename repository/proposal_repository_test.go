package repository

import (
	"context"
	"testing"
	"time"

	"governor/models"
	"governor/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProposalRepository_CreateAndGet(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewProposalRepository(testDB.DB)
	ctx := context.Background()

	t.Run("missing proposal returns nil", func(t *testing.T) {
		p, err := repo.GetByID(ctx, 9999)
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("round trip", func(t *testing.T) {
		from := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		original := testutil.CreateTestProposal("marketing")
		original.TimeFrom = &from

		err := repo.Create(ctx, original)
		require.NoError(t, err)
		assert.NotZero(t, original.ID)
		assert.False(t, original.CreatedAt.IsZero())

		p, err := repo.GetByID(ctx, original.ID)
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "marketing", p.Name)
		assert.Equal(t, models.RuleKindPercentage, p.Kind)
		assert.Equal(t, int64(10), p.Percent)
		assert.Equal(t, models.ProposalStatusCreated, p.Status)
		require.NotNil(t, p.TimeFrom)
		assert.True(t, p.TimeFrom.Equal(from))
		assert.Nil(t, p.TimeTo)
	})
}

func TestProposalRepository_Update(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewProposalRepository(testDB.DB)
	ctx := context.Background()

	proposal := testutil.CreateTestFixedProposal("one-shot grant", 1000)
	require.NoError(t, repo.Create(ctx, proposal))

	proposal.Status = models.ProposalStatusAccepted
	proposal.Votes = 51
	proposal.Balance = 700
	require.NoError(t, repo.Update(ctx, proposal))

	p, err := repo.GetByID(ctx, proposal.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, models.ProposalStatusAccepted, p.Status)
	assert.Equal(t, int64(51), p.Votes)
	assert.Equal(t, int64(700), p.Balance)
	assert.Equal(t, int64(1000), p.Value)

	t.Run("updating a missing proposal fails", func(t *testing.T) {
		ghost := testutil.CreateTestProposal("ghost")
		ghost.ID = 9999
		err := repo.Update(ctx, ghost)
		assert.Error(t, err)
	})
}
