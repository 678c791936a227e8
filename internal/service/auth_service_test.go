package service

import (
	"context"
	"testing"
	"time"

	"quill/internal/events"
	"quill/internal/models"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_RegisterValidation(t *testing.T) {
	e := newEnv(t)
	svc := e.authService()
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"short username", "ab", "ab@example.com", testPassword},
		{"bad email", "gooduser", "not-an-email", testPassword},
		{"short password", "gooduser", "good@example.com", "Short1!"},
		{"password without digit", "gooduser", "good@example.com", "NoDigitsHereAtAll!"},
		{"password without special", "gooduser", "good@example.com", "NoSpecialChars99x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.username, tt.email, tt.password)
			assertCode(t, err, models.CodeValidation)
		})
	}
}

func TestAuthService_AccountLifecycle(t *testing.T) {
	e := newEnv(t)
	svc := e.authService()
	ctx := context.Background()
	registered := countEvents(e.bus, events.TypeUserRegistered)

	user, err := svc.Register(ctx, "lifecycle", "lifecycle@example.com", testPassword)
	require.NoError(t, err)
	assert.False(t, user.IsActive)
	assert.Equal(t, 1, *registered)

	// Password is stored hashed.
	assert.NotEqual(t, testPassword, user.Password)

	// An inactive account cannot log in even with the right password.
	_, err = svc.Login(ctx, "lifecycle@example.com", testPassword)
	assertCode(t, err, models.CodeForbidden)

	activation := e.tokens.ActivationToken(user)
	activated, pair, err := svc.Activate(ctx, activation)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)
	require.NotNil(t, pair)
	assert.NotEmpty(t, pair.Access)

	// The token binds the pre-activation state, so a replay fails.
	_, _, err = svc.Activate(ctx, activation)
	assertCode(t, err, models.CodeValidation)

	result, err := svc.Login(ctx, "lifecycle@example.com", testPassword)
	require.NoError(t, err)
	assert.False(t, result.TwoFactorRequired)
	require.NotNil(t, result.Pair)

	refreshed, err := svc.Refresh(ctx, result.Pair.Refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.Access)

	require.NoError(t, svc.Logout(ctx, result.Pair.Refresh, result.Pair.Access))

	// The revoked refresh token is spent.
	_, err = svc.Refresh(ctx, result.Pair.Refresh)
	assertCode(t, err, models.CodeUnauthorized)
}

func TestAuthService_LoginRejectsBadCredentials(t *testing.T) {
	e := newEnv(t)
	svc := e.authService()
	ctx := context.Background()
	e.activeUser(t, "known")

	_, err := svc.Login(ctx, "known@example.com", "WrongPassword1!x")
	assertCode(t, err, models.CodeUnauthorized)

	_, err = svc.Login(ctx, "nobody@example.com", testPassword)
	assertCode(t, err, models.CodeUnauthorized)
}

func TestAuthService_ActivateRejectsGarbage(t *testing.T) {
	e := newEnv(t)
	svc := e.authService()

	_, _, err := svc.Activate(context.Background(), "not-a-token")
	assertCode(t, err, models.CodeValidation)
}

func TestAuthService_RefreshAndLogoutRequireToken(t *testing.T) {
	e := newEnv(t)
	svc := e.authService()
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "")
	assertCode(t, err, models.CodeValidation)

	err = svc.Logout(ctx, "", "")
	assertCode(t, err, models.CodeValidation)
}

func TestAuthService_TwoFactorLogin(t *testing.T) {
	e := newEnv(t)
	svc := e.authService()
	ctx := context.Background()
	user := e.activeUser(t, "totpuser")

	twoFactor := NewTwoFactorService(e.totp, e.users)
	setup, err := twoFactor.SetupStart(ctx, user.ID)
	require.NoError(t, err)
	require.NoError(t, twoFactor.SetupConfirm(ctx, user.ID, setup.Code))

	result, err := svc.Login(ctx, "totpuser@example.com", testPassword)
	require.NoError(t, err)
	assert.True(t, result.TwoFactorRequired)
	assert.Nil(t, result.Pair)
	assert.Equal(t, user.ID, result.UserID)

	_, err = svc.Verify2FA(ctx, user.ID, "000000")
	assertCode(t, err, models.CodeValidation)

	device, err := e.totp.GetByUser(ctx, user.ID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(device.Secret, time.Now())
	require.NoError(t, err)

	pair, err := svc.Verify2FA(ctx, user.ID, code)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
}

func TestAuthService_DeleteAccount(t *testing.T) {
	e := newEnv(t)
	svc := e.authService()
	ctx := context.Background()
	user := e.activeUser(t, "doomed")

	require.NoError(t, svc.DeleteAccount(ctx, user.ID))

	_, err := svc.Login(ctx, "doomed@example.com", testPassword)
	assertCode(t, err, models.CodeUnauthorized)

	err = svc.DeleteAccount(ctx, user.ID)
	assertCode(t, err, models.CodeNotFound)
}

func TestAuthService_DeleteAccountCascades(t *testing.T) {
	e := newEnv(t)
	svc := e.authService()
	ctx := context.Background()

	doomed := e.activeUser(t, "doomed")
	other := e.activeUser(t, "bystander")
	ownPost := e.approvedPost(t, doomed, "doomed post")
	otherPost := e.approvedPost(t, other, "bystander post")

	require.NoError(t, e.ratings.Create(ctx, &models.Rating{UserID: doomed.ID, PostID: otherPost.ID, Value: 5}))
	require.NoError(t, e.follows.Create(ctx, doomed.ID, other.ID))
	require.NoError(t, e.comments.Create(ctx, &models.Comment{UserID: other.ID, PostID: ownPost.ID, Content: "nice", IsApproved: true}))

	recomputes := countEvents(e.bus, events.TypeRatingDeleted)

	require.NoError(t, svc.DeleteAccount(ctx, doomed.ID))

	// The deleted account's post left the public feed.
	approved, err := e.posts.ListApproved(ctx, 20, 0)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, otherPost.ID, approved[0].ID)

	// The bystander no longer counts the deleted account as a follower.
	var profile models.Profile
	require.NoError(t, e.db.Where("user_id = ?", other.ID).First(&profile).Error)
	assert.Zero(t, profile.FollowerCount)

	// The rating on the bystander's post is gone and its stats recompute
	// was triggered.
	rating, err := e.ratings.GetByUserAndPost(ctx, doomed.ID, otherPost.ID)
	require.NoError(t, err)
	assert.Nil(t, rating)
	assert.Equal(t, 1, *recomputes)

	// Comments on the removed post went with it.
	var commentCount int64
	require.NoError(t, e.db.Model(&models.Comment{}).Where("post_id = ?", ownPost.ID).Count(&commentCount).Error)
	assert.Zero(t, commentCount)
}
