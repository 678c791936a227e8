package repository

import (
	"context"
	"errors"

	"quill/internal/cache"
	"quill/internal/models"

	"gorm.io/gorm"
)

// FollowRepository defines persistence operations for follow edges.
// Profile follower counts always mirror the live count of edges, so every
// mutation goes through a transaction that recounts both sides.
type FollowRepository interface {
	Create(ctx context.Context, followerID, followedID uint) error
	Delete(ctx context.Context, followerID, followedID uint) error
	Exists(ctx context.Context, followerID, followedID uint) (bool, error)
	ListFollowers(ctx context.Context, userID uint, limit, offset int) ([]models.User, error)
	ListFollowing(ctx context.Context, userID uint, limit, offset int) ([]models.User, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository returns a new FollowRepository implementation.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Create(ctx context.Context, followerID, followedID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		edge := models.Follow{FollowerID: followerID, FollowedID: followedID}
		if err := tx.Create(&edge).Error; err != nil {
			return err
		}
		return refreshFollowCounts(tx, followerID, followedID)
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("already following this user")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, followerID)
	cache.InvalidateUser(ctx, followedID)
	return nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followedID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND followed_id = ?", followerID, followedID).
			Delete(&models.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return refreshFollowCounts(tx, followerID, followedID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Follow", followedID)
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, followerID)
	cache.InvalidateUser(ctx, followedID)
	return nil
}

// refreshFollowCounts rewrites the denormalized counts on both profiles from
// the live edge count inside the caller's transaction.
func refreshFollowCounts(tx *gorm.DB, followerID, followedID uint) error {
	var followingCount int64
	if err := tx.Model(&models.Follow{}).
		Where("follower_id = ?", followerID).
		Count(&followingCount).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.Profile{}).
		Where("user_id = ?", followerID).
		Update("following_count", followingCount).Error; err != nil {
		return err
	}

	var followerCount int64
	if err := tx.Model(&models.Follow{}).
		Where("followed_id = ?", followedID).
		Count(&followerCount).Error; err != nil {
		return err
	}
	return tx.Model(&models.Profile{}).
		Where("user_id = ?", followedID).
		Update("follower_count", followerCount).Error
}

func (r *followRepository) Exists(ctx context.Context, followerID, followedID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *followRepository) ListFollowers(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var users []models.User
	if err := r.db.WithContext(ctx).
		Table("users").
		Joins("JOIN follows f ON users.id = f.follower_id").
		Where("f.followed_id = ?", userID).
		Order("f.created_at DESC").
		Limit(limit).Offset(offset).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *followRepository) ListFollowing(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var users []models.User
	if err := r.db.WithContext(ctx).
		Table("users").
		Joins("JOIN follows f ON users.id = f.followed_id").
		Where("f.follower_id = ?", userID).
		Order("f.created_at DESC").
		Limit(limit).Offset(offset).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
