package service

import (
	"context"
	"strings"

	"quill/internal/events"
	"quill/internal/models"
	"quill/internal/repository"
)

// CommentService provides comment creation and moderation logic.
type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	bus         *events.Bus
}

// NewCommentService returns a new CommentService.
func NewCommentService(commentRepo repository.CommentRepository, postRepo repository.PostRepository, bus *events.Bus) *CommentService {
	return &CommentService{commentRepo: commentRepo, postRepo: postRepo, bus: bus}
}

// Create stores a comment on an approved post and publishes CommentCreated.
func (s *CommentService) Create(ctx context.Context, userID, postID uint, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, models.NewValidationError("content is required")
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.IsApproved {
		return nil, models.NewValidationError("cannot comment on an unapproved post")
	}

	comment := &models.Comment{
		Content:    content,
		UserID:     userID,
		PostID:     postID,
		IsApproved: true,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.CommentCreated{
		CommentID:   comment.ID,
		PostID:      postID,
		PostAuthor:  post.UserID,
		CommenterID: userID,
	})
	return comment, nil
}

// ListByPost returns a post's comments, oldest first. Moderators also see
// unapproved comments.
func (s *CommentService) ListByPost(ctx context.Context, postID uint, viewer *models.User, limit, offset int) ([]models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	approvedOnly := viewer == nil || !viewer.Moderator()
	return s.commentRepo.ListByPost(ctx, postID, approvedOnly, limit, offset)
}

// SetApproved moderates a comment independently of its post.
func (s *CommentService) SetApproved(ctx context.Context, id uint, approved bool) (*models.Comment, error) {
	if err := s.commentRepo.SetApproved(ctx, id, approved); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, id)
}

// Delete removes a comment (author or moderator).
func (s *CommentService) Delete(ctx context.Context, actor *models.User, id uint) error {
	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if comment.UserID != actor.ID && !actor.Moderator() {
		return models.NewForbiddenError("you can only delete your own comments")
	}
	return s.commentRepo.Delete(ctx, id)
}
