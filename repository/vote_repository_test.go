package repository

import (
	"context"
	"testing"

	"governor/models"
	"governor/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteRepository_AddAccumulates(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewVoteRepository(testDB.DB)
	ctx := context.Background()

	t.Run("no record before the first vote", func(t *testing.T) {
		v, err := repo.Get(ctx, "0xa", models.VoteCategoryCreate, 1)
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("votes accumulate per holder, category and proposal", func(t *testing.T) {
		require.NoError(t, repo.Add(ctx, "0xa", models.VoteCategoryCreate, 1, 10))
		require.NoError(t, repo.Add(ctx, "0xa", models.VoteCategoryCreate, 1, 15))

		v, err := repo.Get(ctx, "0xa", models.VoteCategoryCreate, 1)
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, int64(25), v.Votes)
	})

	t.Run("categories are independent counters", func(t *testing.T) {
		require.NoError(t, repo.Add(ctx, "0xa", models.VoteCategoryDelete, 1, 5))

		v, err := repo.Get(ctx, "0xa", models.VoteCategoryDelete, 1)
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, int64(5), v.Votes)

		v, err = repo.Get(ctx, "0xa", models.VoteCategoryCreate, 1)
		require.NoError(t, err)
		require.NotNil(t, v)
		assert.Equal(t, int64(25), v.Votes)
	})
}
