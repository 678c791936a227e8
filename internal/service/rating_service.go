package service

import (
	"context"
	"errors"

	"quill/internal/events"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/validation"
)

// RatingService provides star-rating logic with upsert semantics: a second
// rating by the same user on the same post updates the first in place.
type RatingService struct {
	ratingRepo repository.RatingRepository
	postRepo   repository.PostRepository
	bus        *events.Bus
}

// NewRatingService returns a new RatingService.
func NewRatingService(ratingRepo repository.RatingRepository, postRepo repository.PostRepository, bus *events.Bus) *RatingService {
	return &RatingService{ratingRepo: ratingRepo, postRepo: postRepo, bus: bus}
}

// Rate creates or updates the caller's rating of a post. The approved-post
// check applies at create time only; an existing rating stays updatable even
// if the post later leaves the approved set.
func (s *RatingService) Rate(ctx context.Context, raterID, postID uint, value int) (*models.Rating, bool, error) {
	if err := validation.ValidateRatingValue(value); err != nil {
		return nil, false, models.NewValidationError(err.Error())
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.ratingRepo.GetByUserAndPost(ctx, raterID, postID)
	if err != nil {
		return nil, false, err
	}

	if existing != nil {
		if err := s.ratingRepo.UpdateValue(ctx, existing.ID, value); err != nil {
			return nil, false, err
		}
		existing.Value = value
		s.bus.Publish(ctx, events.RatingUpdated{
			PostID:   postID,
			AuthorID: post.UserID,
			RaterID:  raterID,
			Value:    value,
		})
		return existing, false, nil
	}

	if !post.IsApproved {
		return nil, false, models.NewValidationError("cannot rate an unapproved post")
	}

	rating := &models.Rating{UserID: raterID, PostID: postID, Value: value}
	if err := s.ratingRepo.Create(ctx, rating); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeConflict {
			// Lost a race with our own first rating; fall back to a single
			// update of the row that won.
			winner, getErr := s.ratingRepo.GetByUserAndPost(ctx, raterID, postID)
			if getErr != nil {
				return nil, false, getErr
			}
			if winner == nil {
				return nil, false, err
			}
			if err := s.ratingRepo.UpdateValue(ctx, winner.ID, value); err != nil {
				return nil, false, err
			}
			winner.Value = value
			s.bus.Publish(ctx, events.RatingUpdated{
				PostID:   postID,
				AuthorID: post.UserID,
				RaterID:  raterID,
				Value:    value,
			})
			return winner, false, nil
		}
		return nil, false, err
	}

	s.bus.Publish(ctx, events.RatingCreated{
		PostID:   postID,
		AuthorID: post.UserID,
		RaterID:  raterID,
		Value:    value,
	})
	return rating, true, nil
}

// Delete removes the caller's rating of a post.
func (s *RatingService) Delete(ctx context.Context, raterID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}

	rating, err := s.ratingRepo.GetByUserAndPost(ctx, raterID, postID)
	if err != nil {
		return err
	}
	if rating == nil {
		return models.NewNotFoundError("Rating", postID)
	}

	if err := s.ratingRepo.Delete(ctx, rating.ID); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.RatingDeleted{
		PostID:   postID,
		AuthorID: post.UserID,
		RaterID:  raterID,
	})
	return nil
}

// ListByPost returns the ratings of a post, newest first.
func (s *RatingService) ListByPost(ctx context.Context, postID uint, limit, offset int) ([]models.Rating, error) {
	return s.ratingRepo.ListByPost(ctx, postID, limit, offset)
}
