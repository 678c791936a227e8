package repository

import (
	"context"
	"errors"

	"quill/internal/models"

	"gorm.io/gorm"
)

// TagRepository defines persistence operations for profile tags.
type TagRepository interface {
	Create(ctx context.Context, tag *models.ProfileTag) error
	GetByID(ctx context.Context, id uint) (*models.ProfileTag, error)
	ListForUser(ctx context.Context, taggedUserID uint, limit, offset int) ([]models.ProfileTag, error)
	Delete(ctx context.Context, id uint) error
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository returns a new TagRepository implementation.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) Create(ctx context.Context, tag *models.ProfileTag) error {
	if err := r.db.WithContext(ctx).Create(tag).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("user already tagged on this target")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tagRepository) GetByID(ctx context.Context, id uint) (*models.ProfileTag, error) {
	var tag models.ProfileTag
	if err := r.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("ProfileTag", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &tag, nil
}

func (r *tagRepository) ListForUser(ctx context.Context, taggedUserID uint, limit, offset int) ([]models.ProfileTag, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var tags []models.ProfileTag
	if err := r.db.WithContext(ctx).
		Where("tagged_user_id = ?", taggedUserID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&tags).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}

func (r *tagRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.ProfileTag{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
