package repository

import (
	"context"
	"errors"

	"quill/internal/cache"
	"quill/internal/models"

	"gorm.io/gorm"
)

// ProfileRepository defines persistence operations for profiles and the
// per-user popularity metrics read model.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID uint) (*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
	GetMetrics(ctx context.Context, userID uint) (*models.PopularityMetrics, error)
	ListTopByScore(ctx context.Context, limit int) ([]models.Profile, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a new ProfileRepository implementation.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	key := cache.ProfileKey(userID)

	err := cache.Aside(ctx, key, &profile, cache.ProfileTTL, func() error {
		if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Profile", userID)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) error {
	if err := r.db.WithContext(ctx).Save(profile).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, profile.UserID)
	return nil
}

func (r *profileRepository) GetMetrics(ctx context.Context, userID uint) (*models.PopularityMetrics, error) {
	var metrics models.PopularityMetrics
	key := cache.MetricsKey(userID)

	err := cache.Aside(ctx, key, &metrics, cache.MetricsTTL, func() error {
		if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&metrics).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("PopularityMetrics", userID)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &metrics, nil
}

func (r *profileRepository) ListTopByScore(ctx context.Context, limit int) ([]models.Profile, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var profiles []models.Profile
	if err := r.db.WithContext(ctx).
		Order("popularity_score DESC").
		Limit(limit).
		Find(&profiles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return profiles, nil
}
