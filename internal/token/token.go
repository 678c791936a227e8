// Package token implements access/refresh token issuance and validation,
// the jti blacklist, and signed account-activation tokens.
package token

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"quill/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Sentinel errors for the token lifecycle.
var (
	ErrMissingToken = errors.New("refresh token required")
	ErrInvalidToken = errors.New("token is invalid or expired")
)

const (
	issuer   = "quill-api"
	audience = "quill-client"

	// TypeAccess and TypeRefresh discriminate the two token kinds via the
	// "typ" claim so a refresh token can never pass as an access token.
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// BlacklistStore is the durable jti denylist.
type BlacklistStore interface {
	Add(ctx context.Context, jti string, expiresAt time.Time) error
	Contains(ctx context.Context, jti string) (bool, error)
}

// Pair bundles a freshly issued access and refresh token.
type Pair struct {
	Access           string    `json:"access"`
	Refresh          string    `json:"refresh"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// Parsed is the validated view of a token.
type Parsed struct {
	UserID    uint
	Username  string
	JTI       string
	Type      string
	ExpiresAt time.Time
}

// Service issues and validates tokens. RotateRefresh controls whether a
// successful refresh blacklists the old refresh token and issues a new one;
// the blacklist check itself is always active.
type Service struct {
	secret        []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	activationTTL time.Duration
	store         BlacklistStore
	rdb           *redis.Client
	RotateRefresh bool
}

// NewService creates a token service.
func NewService(secret string, accessTTL, refreshTTL, activationTTL time.Duration, store BlacklistStore, rdb *redis.Client) *Service {
	return &Service{
		secret:        []byte(secret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		activationTTL: activationTTL,
		store:         store,
		rdb:           rdb,
	}
}

// IssuePair creates a new access/refresh token pair for the user.
func (s *Service) IssuePair(userID uint, username string) (*Pair, error) {
	access, accessExp, err := s.issue(userID, username, TypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.issue(userID, username, TypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Pair{
		Access:           access,
		Refresh:          refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IssueAccess creates a standalone access token.
func (s *Service) IssueAccess(userID uint, username string) (string, time.Time, error) {
	return s.issue(userID, username, TypeAccess, s.accessTTL)
}

func (s *Service) issue(userID uint, username, typ string, ttl time.Duration) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      issuer,
		"aud":      audience,
		"typ":      typ,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      uuid.New().String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse validates signature, issuer, audience and expiry, and extracts the
// claims. It does NOT consult the blacklist; callers pair it with
// IsBlacklisted so revoked-but-valid tokens fail the same way as forged ones.
func (s *Service) Parse(tokenString string) (*Parsed, error) {
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return nil, ErrInvalidToken
	}

	jti, _ := claims["jti"].(string)
	if jti == "" {
		return nil, ErrInvalidToken
	}
	typ, _ := claims["typ"].(string)
	username, _ := claims["username"].(string)

	var expiresAt time.Time
	if expVal, expErr := claims.GetExpirationTime(); expErr == nil && expVal != nil {
		expiresAt = expVal.Time
	}

	return &Parsed{
		UserID:    uint(userID),
		Username:  username,
		JTI:       jti,
		Type:      typ,
		ExpiresAt: expiresAt,
	}, nil
}

// Blacklist records a jti so the token is rejected for the rest of its life.
// The durable row is authoritative; the Redis key is the hot-path mirror.
func (s *Service) Blacklist(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.store != nil {
		if err := s.store.Add(ctx, jti, expiresAt); err != nil {
			return err
		}
	}
	if s.rdb != nil {
		ttl := time.Until(expiresAt)
		if ttl > 0 {
			s.rdb.Set(ctx, "blacklist:"+jti, "1", ttl)
		}
	}
	return nil
}

// IsBlacklisted checks the Redis mirror first and falls back to the durable
// store on a miss.
func (s *Service) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if s.rdb != nil {
		n, err := s.rdb.Exists(ctx, "blacklist:"+jti).Result()
		if err == nil && n > 0 {
			return true, nil
		}
	}
	if s.store == nil {
		return false, nil
	}
	return s.store.Contains(ctx, jti)
}

// Refresh validates a refresh token and issues a new access token. With
// rotation enabled the old refresh token is blacklisted and replaced;
// otherwise the caller keeps using the presented refresh token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Pair, error) {
	parsed, err := s.Parse(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if parsed.Type != TypeRefresh {
		return nil, ErrInvalidToken
	}
	revoked, err := s.IsBlacklisted(ctx, parsed.JTI)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidToken
	}

	access, accessExp, err := s.IssueAccess(parsed.UserID, parsed.Username)
	if err != nil {
		return nil, err
	}

	pair := &Pair{
		Access:           access,
		Refresh:          refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: parsed.ExpiresAt,
	}

	if s.RotateRefresh {
		if err := s.Blacklist(ctx, parsed.JTI, parsed.ExpiresAt); err != nil {
			return nil, err
		}
		newRefresh, newExp, err := s.issue(parsed.UserID, parsed.Username, TypeRefresh, s.refreshTTL)
		if err != nil {
			return nil, err
		}
		pair.Refresh = newRefresh
		pair.RefreshExpiresAt = newExp
	}

	return pair, nil
}

// Revoke blacklists a presented token regardless of type. Malformed tokens
// return ErrInvalidToken.
func (s *Service) Revoke(ctx context.Context, tokenString string) error {
	parsed, err := s.Parse(tokenString)
	if err != nil {
		return ErrInvalidToken
	}
	return s.Blacklist(ctx, parsed.JTI, parsed.ExpiresAt)
}

// ActivationToken builds a short-lived signed token proving control of the
// registered email. The MAC input includes the user's current is_active
// flag, so the first successful activation invalidates every token minted
// before it.
func (s *Service) ActivationToken(user *models.User) string {
	ts := time.Now().Unix()
	payload := fmt.Sprintf("%d:%d", user.ID, ts)
	mac := s.activationMAC(user.ID, user.IsActive, ts)
	return base64.RawURLEncoding.EncodeToString([]byte(payload)) + "." + mac
}

// CheckActivationToken validates shape, signature against the user's
// current state, and age. A token minted before the account became active
// fails the signature check by construction.
func (s *Service) CheckActivationToken(tokenString string, user *models.User) error {
	parts := strings.SplitN(tokenString, ".", 2)
	if len(parts) != 2 {
		return ErrInvalidToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return ErrInvalidToken
	}
	fields := strings.SplitN(string(raw), ":", 2)
	if len(fields) != 2 {
		return ErrInvalidToken
	}
	uid, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil || uint(uid) != user.ID {
		return ErrInvalidToken
	}
	ts, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return ErrInvalidToken
	}

	expected := s.activationMAC(user.ID, user.IsActive, ts)
	if !hmac.Equal([]byte(expected), []byte(parts[1])) {
		return ErrInvalidToken
	}

	if time.Since(time.Unix(ts, 0)) > s.activationTTL {
		return ErrInvalidToken
	}
	return nil
}

// ActivationUserID extracts the user id from an activation token without
// verifying it. Callers load that user and then run CheckActivationToken
// against the loaded state.
func ActivationUserID(tokenString string) (uint, error) {
	parts := strings.SplitN(tokenString, ".", 2)
	if len(parts) != 2 {
		return 0, ErrInvalidToken
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return 0, ErrInvalidToken
	}
	fields := strings.SplitN(string(raw), ":", 2)
	if len(fields) != 2 {
		return 0, ErrInvalidToken
	}
	uid, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return uint(uid), nil
}

func (s *Service) activationMAC(userID uint, isActive bool, ts int64) string {
	h := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(h, "%d|%t|%d", userID, isActive, ts)
	return hex.EncodeToString(h.Sum(nil))
}
