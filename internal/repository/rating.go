package repository

import (
	"context"
	"errors"

	"quill/internal/models"

	"gorm.io/gorm"
)

// RatingRepository defines persistence operations for ratings.
type RatingRepository interface {
	GetByUserAndPost(ctx context.Context, userID, postID uint) (*models.Rating, error)
	Create(ctx context.Context, rating *models.Rating) error
	UpdateValue(ctx context.Context, id uint, value int) error
	Delete(ctx context.Context, id uint) error
	ListByPost(ctx context.Context, postID uint, limit, offset int) ([]models.Rating, error)
}

type ratingRepository struct {
	db *gorm.DB
}

// NewRatingRepository returns a new RatingRepository implementation.
func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

// GetByUserAndPost returns (nil, nil) when the user has not rated the post.
func (r *ratingRepository) GetByUserAndPost(ctx context.Context, userID, postID uint) (*models.Rating, error) {
	var rating models.Rating
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		First(&rating).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &rating, nil
}

func (r *ratingRepository) Create(ctx context.Context, rating *models.Rating) error {
	if err := r.db.WithContext(ctx).Create(rating).Error; err != nil {
		if isUniqueConstraintError(err) {
			// Lost a race with a concurrent first rating; the caller falls
			// back to an update.
			return models.NewConflictError("rating already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *ratingRepository) UpdateValue(ctx context.Context, id uint, value int) error {
	res := r.db.WithContext(ctx).Model(&models.Rating{}).
		Where("id = ?", id).
		Update("value", value)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Rating", id)
	}
	return nil
}

func (r *ratingRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Rating{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *ratingRepository) ListByPost(ctx context.Context, postID uint, limit, offset int) ([]models.Rating, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var ratings []models.Rating
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&ratings).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ratings, nil
}
