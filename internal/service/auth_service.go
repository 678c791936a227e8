// Package service implements the business logic layer between HTTP handlers
// and repositories.
package service

import (
	"context"
	"fmt"

	"quill/internal/events"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/token"
	"quill/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// LoginResult is either a token pair or a second-factor challenge.
type LoginResult struct {
	Pair              *token.Pair
	TwoFactorRequired bool
	UserID            uint
}

// AuthService owns the account lifecycle: registration, activation, login
// with optional 2FA, refresh and logout.
type AuthService struct {
	userRepo  repository.UserRepository
	tokens    *token.Service
	twoFactor *TwoFactorService
	bus       *events.Bus
}

// NewAuthService returns a new AuthService.
func NewAuthService(userRepo repository.UserRepository, tokens *token.Service, twoFactor *TwoFactorService, bus *events.Bus) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		tokens:    tokens,
		twoFactor: twoFactor,
		bus:       bus,
	}
}

// Register creates an inactive account with its profile and metrics rows and
// publishes UserRegistered so the activation mail goes out.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("hash password: %w", err))
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.UserRegistered{UserID: user.ID, Email: user.Email})
	return user, nil
}

// Activate redeems an activation token, marks the account active and issues
// a token pair. A replayed token fails because the signature binds the
// account's pre-activation state.
func (s *AuthService) Activate(ctx context.Context, tokenString string) (*models.User, *token.Pair, error) {
	uid, err := token.ActivationUserID(tokenString)
	if err != nil {
		return nil, nil, models.NewValidationError("activation token is invalid or expired")
	}

	user, err := s.userRepo.GetByID(ctx, uid)
	if err != nil {
		return nil, nil, models.NewValidationError("activation token is invalid or expired")
	}

	if err := s.tokens.CheckActivationToken(tokenString, user); err != nil {
		return nil, nil, models.NewValidationError("activation token is invalid or expired")
	}

	user.IsActive = true
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, nil, err
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Username)
	if err != nil {
		return nil, nil, models.NewInternalError(err)
	}
	return user, pair, nil
}

// Login checks credentials. An account with a confirmed TOTP device gets a
// second-factor challenge instead of tokens.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Burn a comparison so missing accounts cost the same as bad passwords.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$invalidsaltinvalidsaltinv.alidhashinvalidhashinvalidha"), []byte(password))
		return nil, models.NewUnauthorizedError("invalid email or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, models.NewUnauthorizedError("invalid email or password")
	}
	if !user.IsActive {
		return nil, models.NewForbiddenError("account is not activated")
	}

	enabled, err := s.twoFactor.Enabled(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if enabled {
		return &LoginResult{TwoFactorRequired: true, UserID: user.ID}, nil
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &LoginResult{Pair: pair, UserID: user.ID}, nil
}

// Verify2FA completes a second-factor challenge and issues the withheld
// token pair.
func (s *AuthService) Verify2FA(ctx context.Context, userID uint, code string) (*token.Pair, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, models.NewForbiddenError("account is not activated")
	}
	if err := s.twoFactor.Verify(ctx, userID, code); err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return pair, nil
}

// Refresh exchanges a refresh token for a new access token (and, with
// rotation enabled, a new refresh token).
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*token.Pair, error) {
	if refreshToken == "" {
		return nil, models.NewValidationError("refresh token required")
	}
	pair, err := s.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, models.NewUnauthorizedError("token is invalid or expired")
	}
	return pair, nil
}

// Logout blacklists the refresh token and, when presented, the access token.
func (s *AuthService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	if refreshToken == "" {
		return models.NewValidationError("refresh token required")
	}
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		return models.NewUnauthorizedError("token is invalid or expired")
	}
	if accessToken != "" {
		// Best-effort; an unusable access token does not fail the logout.
		_ = s.tokens.Revoke(ctx, accessToken)
	}
	return nil
}

// DeleteAccount removes the account and everything it owns. Posts the user
// had rated keep their rows consistent through the usual recompute pipeline.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uint) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return err
	}
	cascade, err := s.userRepo.Delete(ctx, userID)
	if err != nil {
		return err
	}
	for _, postID := range cascade.RatedPostIDs {
		s.bus.Publish(ctx, events.RatingDeleted{PostID: postID, RaterID: userID})
	}
	return nil
}
