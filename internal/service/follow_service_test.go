package service

import (
	"context"
	"testing"

	"quill/internal/events"
	"quill/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowService_FollowAndUnfollow(t *testing.T) {
	e := newEnv(t)
	svc := NewFollowService(e.follows, e.users, e.bus)
	ctx := context.Background()

	alice := e.activeUser(t, "alice")
	bob := e.activeUser(t, "bob")

	followed := countEvents(e.bus, events.TypeFollowCreated)
	unfollowed := countEvents(e.bus, events.TypeFollowDeleted)

	require.NoError(t, svc.Follow(ctx, alice.ID, bob.ID))
	assert.Equal(t, 1, *followed)

	followers, err := svc.Followers(ctx, bob.ID, 20, 0)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, alice.ID, followers[0].ID)

	following, err := svc.Following(ctx, alice.ID, 20, 0)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, bob.ID, following[0].ID)

	require.NoError(t, svc.Unfollow(ctx, alice.ID, bob.ID))
	assert.Equal(t, 1, *unfollowed)

	followers, err = svc.Followers(ctx, bob.ID, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, followers)
}

func TestFollowService_SelfFollowRejected(t *testing.T) {
	e := newEnv(t)
	svc := NewFollowService(e.follows, e.users, e.bus)
	ctx := context.Background()

	alice := e.activeUser(t, "alice")

	err := svc.Follow(ctx, alice.ID, alice.ID)
	assertCode(t, err, models.CodeValidation)

	err = svc.Unfollow(ctx, alice.ID, alice.ID)
	assertCode(t, err, models.CodeValidation)
}

func TestFollowService_MissingTarget(t *testing.T) {
	e := newEnv(t)
	svc := NewFollowService(e.follows, e.users, e.bus)

	alice := e.activeUser(t, "alice")

	err := svc.Follow(context.Background(), alice.ID, 9999)
	assertCode(t, err, models.CodeNotFound)
}

func TestFollowService_UnfollowWithoutEdge(t *testing.T) {
	e := newEnv(t)
	svc := NewFollowService(e.follows, e.users, e.bus)
	ctx := context.Background()

	alice := e.activeUser(t, "alice")
	bob := e.activeUser(t, "bob")

	err := svc.Unfollow(ctx, alice.ID, bob.ID)
	assertCode(t, err, models.CodeValidation)
	assert.Contains(t, err.Error(), "not following")
}

func TestFollowService_DuplicateFollow(t *testing.T) {
	e := newEnv(t)
	svc := NewFollowService(e.follows, e.users, e.bus)
	ctx := context.Background()

	alice := e.activeUser(t, "alice")
	bob := e.activeUser(t, "bob")

	require.NoError(t, svc.Follow(ctx, alice.ID, bob.ID))
	err := svc.Follow(ctx, alice.ID, bob.ID)
	assertCode(t, err, models.CodeConflict)
}
