package repository

import (
	"context"
	"time"

	"quill/internal/models"

	"gorm.io/gorm"
)

// TokenRepository is the durable jti denylist backing token revocation.
// It satisfies token.BlacklistStore.
type TokenRepository interface {
	Add(ctx context.Context, jti string, expiresAt time.Time) error
	Contains(ctx context.Context, jti string) (bool, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type tokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository returns a new TokenRepository implementation.
func NewTokenRepository(db *gorm.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	row := models.BlacklistedToken{JTI: jti, ExpiresAt: expiresAt}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueConstraintError(err) {
			// Already blacklisted; revocation is idempotent.
			return nil
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tokenRepository) Contains(ctx context.Context, jti string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.BlacklistedToken{}).
		Where("jti = ?", jti).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// PurgeExpired removes denylist rows whose tokens have expired on their own.
func (r *tokenRepository) PurgeExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", time.Now()).
		Delete(&models.BlacklistedToken{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
