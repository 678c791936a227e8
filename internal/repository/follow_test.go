package repository

import (
	"context"
	"testing"

	"quill/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getProfile(t *testing.T, repo ProfileRepository, userID uint) *models.Profile {
	t.Helper()
	profile, err := repo.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	return profile
}

func TestFollowRepository_CountsRoundTrip(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	follows := NewFollowRepository(db)
	profiles := NewProfileRepository(db)

	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")

	require.NoError(t, follows.Create(ctx, alice.ID, bob.ID))

	assert.Equal(t, 1, getProfile(t, profiles, alice.ID).FollowingCount)
	assert.Equal(t, 1, getProfile(t, profiles, bob.ID).FollowerCount)
	assert.Equal(t, 0, getProfile(t, profiles, bob.ID).FollowingCount)

	exists, err := follows.Exists(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, follows.Delete(ctx, alice.ID, bob.ID))

	assert.Equal(t, 0, getProfile(t, profiles, alice.ID).FollowingCount)
	assert.Equal(t, 0, getProfile(t, profiles, bob.ID).FollowerCount)
}

func TestFollowRepository_DuplicateIsConflict(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	follows := NewFollowRepository(db)

	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")

	require.NoError(t, follows.Create(ctx, alice.ID, bob.ID))
	err := follows.Create(ctx, alice.ID, bob.ID)
	assertAppErrorCode(t, err, models.CodeConflict)

	// The duplicate attempt must not corrupt the counts.
	profiles := NewProfileRepository(db)
	assert.Equal(t, 1, getProfile(t, profiles, bob.ID).FollowerCount)
}

func TestFollowRepository_DeleteMissingEdge(t *testing.T) {
	db := openDB(t)
	follows := NewFollowRepository(db)

	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")

	err := follows.Delete(context.Background(), alice.ID, bob.ID)
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func TestFollowRepository_Listings(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	follows := NewFollowRepository(db)

	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")
	carol := mustCreateUser(t, db, "carol")

	require.NoError(t, follows.Create(ctx, alice.ID, carol.ID))
	require.NoError(t, follows.Create(ctx, bob.ID, carol.ID))
	require.NoError(t, follows.Create(ctx, carol.ID, alice.ID))

	followers, err := follows.ListFollowers(ctx, carol.ID, 20, 0)
	require.NoError(t, err)
	assert.Len(t, followers, 2)

	following, err := follows.ListFollowing(ctx, carol.ID, 20, 0)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, alice.ID, following[0].ID)
}
