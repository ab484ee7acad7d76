package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harmony/internal/db"
	"harmony/internal/repository"
)

// An account created deactivated must stay deactivated; a column default
// would flip the stored value to true and leak the user into candidate
// pools.
func TestCreatePreservesInactive(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewUserRepository(dbase)

	user := db.User{
		Username:     "dormant",
		Email:        "dormant@example.com",
		PasswordHash: "x",
		Active:       false,
	}
	require.NoError(t, repo.Create(ctx, &user))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	matches := repository.NewMatchRepository(dbase)
	seedUsers(t, dbase, 2)
	ids, err := matches.EligibleIDs(ctx, 2)
	require.NoError(t, err)
	assert.NotContains(t, ids, user.ID)
}

func TestGetByUsername(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewUserRepository(dbase)

	user := db.User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "x",
		Active:       true,
	}
	require.NoError(t, repo.Create(ctx, &user))

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.Error(t, err)
}
