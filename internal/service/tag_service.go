package service

import (
	"context"

	"quill/internal/events"
	"quill/internal/models"
	"quill/internal/repository"
)

// TagService creates and lists profile tags (mentions on posts/comments).
type TagService struct {
	tagRepo     repository.TagRepository
	userRepo    repository.UserRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	bus         *events.Bus
}

// NewTagService returns a new TagService.
func NewTagService(tagRepo repository.TagRepository, userRepo repository.UserRepository, postRepo repository.PostRepository, commentRepo repository.CommentRepository, bus *events.Bus) *TagService {
	return &TagService{
		tagRepo:     tagRepo,
		userRepo:    userRepo,
		postRepo:    postRepo,
		commentRepo: commentRepo,
		bus:         bus,
	}
}

// Create tags a user on a post or comment. The target kind is checked
// against the closed set before anything is looked up.
func (s *TagService) Create(ctx context.Context, taggerID, taggedUserID uint, targetType models.TagTarget, targetID uint) (*models.ProfileTag, error) {
	if !models.ValidTagTarget(targetType) {
		return nil, models.NewValidationError("target type must be 'post' or 'comment'")
	}
	if taggerID == taggedUserID {
		return nil, models.NewValidationError("cannot tag yourself")
	}
	if _, err := s.userRepo.GetByID(ctx, taggedUserID); err != nil {
		return nil, err
	}

	switch targetType {
	case models.TagTargetPost:
		if _, err := s.postRepo.GetByID(ctx, targetID); err != nil {
			return nil, err
		}
	case models.TagTargetComment:
		if _, err := s.commentRepo.GetByID(ctx, targetID); err != nil {
			return nil, err
		}
	}

	tag := &models.ProfileTag{
		TaggedUserID: taggedUserID,
		TaggerID:     taggerID,
		TargetType:   targetType,
		TargetID:     targetID,
	}
	if err := s.tagRepo.Create(ctx, tag); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.TagCreated{
		TaggedUserID: taggedUserID,
		TaggerID:     taggerID,
		TargetType:   string(targetType),
		TargetID:     targetID,
	})
	return tag, nil
}

// ListForUser returns the tags mentioning a user, newest first.
func (s *TagService) ListForUser(ctx context.Context, taggedUserID uint, limit, offset int) ([]models.ProfileTag, error) {
	return s.tagRepo.ListForUser(ctx, taggedUserID, limit, offset)
}

// Delete removes a tag (tagged user, tagger, or moderator).
func (s *TagService) Delete(ctx context.Context, actor *models.User, id uint) error {
	tag, err := s.tagRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if tag.TaggedUserID != actor.ID && tag.TaggerID != actor.ID && !actor.Moderator() {
		return models.NewForbiddenError("you cannot remove this tag")
	}
	return s.tagRepo.Delete(ctx, id)
}
