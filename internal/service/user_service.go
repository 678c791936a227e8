package service

import (
	"context"
	"strings"

	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/validation"
)

// UserService provides profile and metrics reads plus profile updates.
type UserService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
}

// NewUserService returns a new UserService.
func NewUserService(userRepo repository.UserRepository, profileRepo repository.ProfileRepository) *UserService {
	return &UserService{userRepo: userRepo, profileRepo: profileRepo}
}

// GetUser returns a user with their recent posts preloaded.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByIDWithPosts(ctx, id, 10)
}

// GetProfile returns a user's profile with counts and popularity score.
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	return s.profileRepo.GetByUserID(ctx, userID)
}

// UpdateProfile updates the caller's bio and image URL.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, bio, imageURL string) (*models.Profile, error) {
	bio = strings.TrimSpace(bio)
	if err := validation.ValidateBio(bio); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.Bio = bio
	if imageURL != "" {
		profile.ImageURL = imageURL
	}
	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// GetMetrics returns a user's popularity metrics.
func (s *UserService) GetMetrics(ctx context.Context, userID uint) (*models.PopularityMetrics, error) {
	return s.profileRepo.GetMetrics(ctx, userID)
}

// TopProfiles returns the leaderboard by popularity score.
func (s *UserService) TopProfiles(ctx context.Context, limit int) ([]models.Profile, error) {
	return s.profileRepo.ListTopByScore(ctx, limit)
}
