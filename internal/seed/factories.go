// Package seed creates demo data for development databases. It is never
// wired into production startup paths.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"quill/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db  *gorm.DB
	rng *rand.Rand
}

// NewFactory creates a Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	now := time.Now().UnixNano()
	gofakeit.Seed(now)
	// #nosec G404: acceptable for seeding
	return &Factory{db: db, rng: rand.New(rand.NewSource(now))}
}

// CreateUser persists a sample activated user with its profile and metrics
// rows. All seeded users share the password "password123".
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		Username: gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Email:    gofakeit.Email(),
		Password: string(hashed),
		IsActive: true,
	}

	for _, override := range overrides {
		override(user)
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		profile := &models.Profile{
			UserID:   user.ID,
			Bio:      gofakeit.Sentence(10),
			ImageURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		}
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		return tx.Create(&models.PopularityMetrics{UserID: user.ID, LastUpdated: time.Now()}).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost persists a sample approved post with a realistic created_at
// spread over the past 90 days.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := &models.Post{
		Title:      fmt.Sprintf("%s %s", gofakeit.Sentence(5), gofakeit.UUID()[:8]),
		Content:    gofakeit.Paragraph(2, 4, 8, "\n\n"),
		UserID:     user.ID,
		IsApproved: true,
	}

	daysBack := f.rng.Intn(90)
	hoursBack := f.rng.Intn(24)
	post.CreatedAt = time.Now().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour)

	for _, override := range overrides {
		override(post)
	}

	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateRating persists a rating from user on post. Duplicate (user, post)
// pairs violate the unique index; callers pick distinct pairs.
func (f *Factory) CreateRating(user *models.User, post *models.Post, value int) (*models.Rating, error) {
	rating := &models.Rating{
		UserID: user.ID,
		PostID: post.ID,
		Value:  value,
	}
	if err := f.db.Create(rating).Error; err != nil {
		return nil, err
	}
	return rating, nil
}

// CreateComment persists an approved comment on the post.
func (f *Factory) CreateComment(user *models.User, post *models.Post) (*models.Comment, error) {
	comment := &models.Comment{
		Content:    gofakeit.Sentence(12),
		UserID:     user.ID,
		PostID:     post.ID,
		IsApproved: true,
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateFollow persists a follow edge without touching the denormalized
// counts; Run refreshes them in bulk afterwards.
func (f *Factory) CreateFollow(follower, followed *models.User) error {
	return f.db.Create(&models.Follow{
		FollowerID: follower.ID,
		FollowedID: followed.ID,
	}).Error
}
