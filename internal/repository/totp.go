package repository

import (
	"context"
	"errors"
	"time"

	"quill/internal/models"

	"gorm.io/gorm"
)

// TOTPRepository defines persistence operations for second-factor devices.
type TOTPRepository interface {
	GetByUser(ctx context.Context, userID uint) (*models.TOTPDevice, error)
	Replace(ctx context.Context, device *models.TOTPDevice) error
	Confirm(ctx context.Context, userID uint) error
	Delete(ctx context.Context, userID uint) error
}

type totpRepository struct {
	db *gorm.DB
}

// NewTOTPRepository returns a new TOTPRepository implementation.
func NewTOTPRepository(db *gorm.DB) TOTPRepository {
	return &totpRepository{db: db}
}

// GetByUser returns (nil, nil) when the user has no device.
func (r *totpRepository) GetByUser(ctx context.Context, userID uint) (*models.TOTPDevice, error) {
	var device models.TOTPDevice
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &device, nil
}

// Replace removes any existing device for the user and stores the new one.
// Used to restart setup with a fresh secret.
func (r *totpRepository) Replace(ctx context.Context, device *models.TOTPDevice) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", device.UserID).Delete(&models.TOTPDevice{}).Error; err != nil {
			return err
		}
		return tx.Create(device).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *totpRepository) Confirm(ctx context.Context, userID uint) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.TOTPDevice{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{"confirmed": true, "confirmed_at": &now})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("TOTPDevice", userID)
	}
	return nil
}

func (r *totpRepository) Delete(ctx context.Context, userID uint) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.TOTPDevice{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("TOTPDevice", userID)
	}
	return nil
}
