package service

import (
	"context"
	"errors"

	"quill/internal/events"
	"quill/internal/models"
	"quill/internal/repository"
)

// FollowService maintains the follow graph. Profile counts are recomputed
// from the live edge count inside the same transaction as the mutation, so
// they can never drift.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	bus        *events.Bus
}

// NewFollowService returns a new FollowService.
func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository, bus *events.Bus) *FollowService {
	return &FollowService{followRepo: followRepo, userRepo: userRepo, bus: bus}
}

// Follow creates a follow edge from follower to followed.
func (s *FollowService) Follow(ctx context.Context, followerID, followedID uint) error {
	if followerID == followedID {
		return models.NewValidationError("cannot follow yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, followedID); err != nil {
		return err
	}

	if err := s.followRepo.Create(ctx, followerID, followedID); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.FollowCreated{FollowerID: followerID, FollowedID: followedID})
	return nil
}

// Unfollow removes the follow edge from follower to followed.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followedID uint) error {
	if followerID == followedID {
		return models.NewValidationError("cannot unfollow yourself")
	}

	if err := s.followRepo.Delete(ctx, followerID, followedID); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return models.NewValidationError("not following this user")
		}
		return err
	}

	s.bus.Publish(ctx, events.FollowDeleted{FollowerID: followerID, FollowedID: followedID})
	return nil
}

// Followers returns the users following userID.
func (s *FollowService) Followers(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	return s.followRepo.ListFollowers(ctx, userID, limit, offset)
}

// Following returns the users userID follows.
func (s *FollowService) Following(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	return s.followRepo.ListFollowing(ctx, userID, limit, offset)
}
