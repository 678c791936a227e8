package token

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"quill/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory BlacklistStore for tests.
type memStore struct {
	mu   sync.Mutex
	jtis map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{jtis: make(map[string]time.Time)}
}

func (m *memStore) Add(_ context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jtis[jti] = expiresAt
	return nil
}

func (m *memStore) Contains(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.jtis[jti]
	return ok, nil
}

func newTestService(store BlacklistStore) *Service {
	return NewService("test-secret", 15*time.Minute, 168*time.Hour, 4*time.Hour, store, nil)
}

func TestIssuePairAndParse(t *testing.T) {
	svc := newTestService(newMemStore())

	pair, err := svc.IssuePair(42, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	access, err := svc.Parse(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, uint(42), access.UserID)
	assert.Equal(t, "alice", access.Username)
	assert.Equal(t, TypeAccess, access.Type)
	assert.NotEmpty(t, access.JTI)

	refresh, err := svc.Parse(pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, TypeRefresh, refresh.Type)
	assert.NotEqual(t, access.JTI, refresh.JTI)
}

func TestParseRejectsForgedToken(t *testing.T) {
	svc := newTestService(newMemStore())
	other := NewService("different-secret", 15*time.Minute, time.Hour, time.Hour, nil, nil)

	pair, err := other.IssuePair(1, "mallory")
	require.NoError(t, err)

	_, err = svc.Parse(pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc := newTestService(newMemStore())
	ctx := context.Background()

	pair, err := svc.IssuePair(7, "bob")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBlacklistBeatsValidSignature(t *testing.T) {
	svc := newTestService(newMemStore())
	ctx := context.Background()

	pair, err := svc.IssuePair(7, "bob")
	require.NoError(t, err)

	// Works before revocation.
	_, err = svc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, pair.Refresh))

	parsed, err := svc.Parse(pair.Refresh)
	require.NoError(t, err, "signature stays valid after revocation")
	revoked, err := svc.IsBlacklisted(ctx, parsed.JTI)
	require.NoError(t, err)
	assert.True(t, revoked)

	_, err = svc.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRotation(t *testing.T) {
	svc := newTestService(newMemStore())
	svc.RotateRefresh = true
	ctx := context.Background()

	pair, err := svc.IssuePair(9, "carol")
	require.NoError(t, err)

	rotated, err := svc.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Refresh, rotated.Refresh)

	// The old refresh token is spent.
	_, err = svc.Refresh(ctx, pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// The rotated one works.
	_, err = svc.Refresh(ctx, rotated.Refresh)
	assert.NoError(t, err)
}

func TestActivationTokenLifecycle(t *testing.T) {
	svc := newTestService(nil)
	user := &models.User{ID: 5, Username: "dave", IsActive: false}

	tok := svc.ActivationToken(user)
	require.NotEmpty(t, tok)

	uid, err := ActivationUserID(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(5), uid)

	require.NoError(t, svc.CheckActivationToken(tok, user))

	// Once the account is active the pre-activation token no longer verifies.
	user.IsActive = true
	assert.ErrorIs(t, svc.CheckActivationToken(tok, user), ErrInvalidToken)
}

func TestActivationTokenRejectsTampering(t *testing.T) {
	svc := newTestService(nil)
	user := &models.User{ID: 5, IsActive: false}
	other := &models.User{ID: 6, IsActive: false}

	tok := svc.ActivationToken(user)

	t.Run("wrong user", func(t *testing.T) {
		assert.ErrorIs(t, svc.CheckActivationToken(tok, other), ErrInvalidToken)
	})

	t.Run("modified MAC", func(t *testing.T) {
		parts := strings.SplitN(tok, ".", 2)
		require.Len(t, parts, 2)
		flipped := parts[0] + "." + strings.Repeat("0", len(parts[1]))
		assert.ErrorIs(t, svc.CheckActivationToken(flipped, user), ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		assert.ErrorIs(t, svc.CheckActivationToken("garbage", user), ErrInvalidToken)
		_, err := ActivationUserID("garbage")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestActivationTokenExpiry(t *testing.T) {
	expired := NewService("test-secret", time.Minute, time.Hour, -time.Second, nil, nil)
	user := &models.User{ID: 5, IsActive: false}

	tok := expired.ActivationToken(user)
	assert.ErrorIs(t, expired.CheckActivationToken(tok, user), ErrInvalidToken)
}
