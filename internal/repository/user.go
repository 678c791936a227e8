// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"quill/internal/cache"
	"quill/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByIDWithPosts(ctx context.Context, id uint, limit int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) (*AccountCascade, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
}

// AccountCascade reports what an account deletion removed beyond the user's
// own rows. RatedPostIDs lists other users' posts that lost a rating and
// need their aggregates recomputed.
type AccountCascade struct {
	RatedPostIDs []uint
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	key := cache.UserKey(id)

	err := cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByIDWithPosts(ctx context.Context, id uint, limit int) (*models.User, error) {
	var user models.User
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	if err := r.db.WithContext(ctx).
		Preload("Profile").
		Preload("Metrics").
		Preload("Posts", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Limit(limit)
		}).
		First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// Create persists the user together with its empty profile and metrics rows
// in one transaction. Every user always has both.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.Profile{UserID: user.ID}).Error; err != nil {
			return err
		}
		return tx.Create(&models.PopularityMetrics{UserID: user.ID}).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("username or email already taken")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("username or email already taken")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

// Delete removes an account and everything it owns in one transaction. The
// user row itself is soft-deleted; owned content is removed for real because
// a GORM soft delete never fires the DB-level cascades. Follow counts on the
// other side of every edge are recounted in the same transaction.
func (r *userRepository) Delete(ctx context.Context, id uint) (*AccountCascade, error) {
	cascade := &AccountCascade{}
	var followedIDs, followerIDs []uint

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ownPostIDs []uint
		if err := tx.Model(&models.Post{}).Where("user_id = ?", id).
			Pluck("id", &ownPostIDs).Error; err != nil {
			return err
		}

		ratedQ := tx.Model(&models.Rating{}).Distinct().Where("user_id = ?", id)
		if len(ownPostIDs) > 0 {
			ratedQ = ratedQ.Where("post_id NOT IN ?", ownPostIDs)
		}
		if err := ratedQ.Pluck("post_id", &cascade.RatedPostIDs).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Follow{}).Where("follower_id = ?", id).
			Pluck("followed_id", &followedIDs).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Follow{}).Where("followed_id = ?", id).
			Pluck("follower_id", &followerIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("follower_id = ? OR followed_id = ?", id, id).
			Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		for _, other := range followedIDs {
			var n int64
			if err := tx.Model(&models.Follow{}).Where("followed_id = ?", other).
				Count(&n).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Profile{}).Where("user_id = ?", other).
				Update("follower_count", n).Error; err != nil {
				return err
			}
		}
		for _, other := range followerIDs {
			var n int64
			if err := tx.Model(&models.Follow{}).Where("follower_id = ?", other).
				Count(&n).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Profile{}).Where("user_id = ?", other).
				Update("following_count", n).Error; err != nil {
				return err
			}
		}

		// Comments by the user, plus every comment on the user's posts.
		var ownCommentIDs []uint
		commentQ := tx.Model(&models.Comment{}).Where("user_id = ?", id)
		if len(ownPostIDs) > 0 {
			commentQ = tx.Model(&models.Comment{}).
				Where("user_id = ? OR post_id IN ?", id, ownPostIDs)
		}
		if err := commentQ.Pluck("id", &ownCommentIDs).Error; err != nil {
			return err
		}
		if len(ownCommentIDs) > 0 {
			if err := tx.Unscoped().Where("id IN ?", ownCommentIDs).
				Delete(&models.Comment{}).Error; err != nil {
				return err
			}
		}

		ratingDel := tx.Where("user_id = ?", id)
		if len(ownPostIDs) > 0 {
			ratingDel = tx.Where("user_id = ? OR post_id IN ?", id, ownPostIDs)
		}
		if err := ratingDel.Delete(&models.Rating{}).Error; err != nil {
			return err
		}

		if err := tx.Where("tagged_user_id = ? OR tagger_id = ?", id, id).
			Delete(&models.ProfileTag{}).Error; err != nil {
			return err
		}
		if len(ownPostIDs) > 0 {
			if err := tx.Where("target_type = ? AND target_id IN ?",
				models.TagTargetPost, ownPostIDs).Delete(&models.ProfileTag{}).Error; err != nil {
				return err
			}
		}
		if len(ownCommentIDs) > 0 {
			if err := tx.Where("target_type = ? AND target_id IN ?",
				models.TagTargetComment, ownCommentIDs).Delete(&models.ProfileTag{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("user_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.TOTPDevice{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("user_id = ?", id).Delete(&models.Post{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Profile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.PopularityMetrics{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	cache.InvalidateUser(ctx, id)
	cache.InvalidatePostList(ctx)
	for _, other := range followedIDs {
		cache.InvalidateUser(ctx, other)
	}
	for _, other := range followerIDs {
		cache.InvalidateUser(ctx, other)
	}
	for _, postID := range cascade.RatedPostIDs {
		cache.InvalidatePost(ctx, postID)
	}
	return cascade, nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
