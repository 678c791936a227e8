package service

import (
	"context"
	"time"

	"quill/internal/models"
	"quill/internal/repository"

	"github.com/pquerna/otp/totp"
)

// TwoFactorService manages TOTP devices. A user moves through
// none -> pending -> confirmed; only a confirmed device gates login.
type TwoFactorService struct {
	totpRepo repository.TOTPRepository
	userRepo repository.UserRepository
}

// NewTwoFactorService returns a new TwoFactorService.
func NewTwoFactorService(totpRepo repository.TOTPRepository, userRepo repository.UserRepository) *TwoFactorService {
	return &TwoFactorService{totpRepo: totpRepo, userRepo: userRepo}
}

// Setup is what SetupStart hands back to the client.
type Setup struct {
	URI  string `json:"uri"`
	Code string `json:"code"`
}

// SetupStart provisions a fresh secret. A confirmed device is a conflict; an
// unconfirmed one is silently replaced so setup can be restarted.
func (s *TwoFactorService) SetupStart(ctx context.Context, userID uint) (*Setup, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	device, err := s.totpRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if device != nil && device.Confirmed {
		return nil, models.NewConflictError("two-factor authentication is already enabled")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "Quill",
		AccountName: user.Email,
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	if err := s.totpRepo.Replace(ctx, &models.TOTPDevice{
		UserID: userID,
		Secret: key.Secret(),
	}); err != nil {
		return nil, err
	}

	// A current code lets clients self-check their clock before confirming.
	code, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &Setup{URI: key.URL(), Code: code}, nil
}

// SetupConfirm validates the first code against the pending device and flips
// it to confirmed.
func (s *TwoFactorService) SetupConfirm(ctx context.Context, userID uint, code string) error {
	device, err := s.totpRepo.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	if device == nil {
		return models.NewNotFoundError("TOTPDevice", userID)
	}
	if device.Confirmed {
		return models.NewConflictError("two-factor authentication is already enabled")
	}
	if !totp.Validate(code, device.Secret) {
		return models.NewValidationError("invalid verification code")
	}
	return s.totpRepo.Confirm(ctx, userID)
}

// SetupCancel deletes a pending device. Cancelling with nothing pending is
// an informational no-op, never an error.
func (s *TwoFactorService) SetupCancel(ctx context.Context, userID uint) error {
	device, err := s.totpRepo.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	if device == nil || device.Confirmed {
		return nil
	}
	return s.totpRepo.Delete(ctx, userID)
}

// Verify checks a code against the user's confirmed device.
func (s *TwoFactorService) Verify(ctx context.Context, userID uint, code string) error {
	device, err := s.totpRepo.GetByUser(ctx, userID)
	if err != nil {
		return err
	}
	if device == nil || !device.Confirmed {
		return models.NewValidationError("two-factor authentication is not enabled")
	}
	if !totp.Validate(code, device.Secret) {
		return models.NewValidationError("invalid verification code")
	}
	return nil
}

// Enabled reports whether the user has a confirmed device.
func (s *TwoFactorService) Enabled(ctx context.Context, userID uint) (bool, error) {
	device, err := s.totpRepo.GetByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return device != nil && device.Confirmed, nil
}
