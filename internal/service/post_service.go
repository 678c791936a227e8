package service

import (
	"context"
	"strings"

	"quill/internal/events"
	"quill/internal/models"
	"quill/internal/repository"
)

// PostService provides post creation, moderation and listing logic.
type PostService struct {
	postRepo repository.PostRepository
	bus      *events.Bus
}

// NewPostService returns a new PostService.
func NewPostService(postRepo repository.PostRepository, bus *events.Bus) *PostService {
	return &PostService{postRepo: postRepo, bus: bus}
}

// Create stores a new, unapproved post and publishes PostCreated.
func (s *PostService) Create(ctx context.Context, userID uint, title, content string) (*models.Post, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, models.NewValidationError("title is required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, models.NewValidationError("content is required")
	}

	post := &models.Post{
		Title:   title,
		Content: content,
		UserID:  userID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.PostCreated{PostID: post.ID, AuthorID: userID})
	return post, nil
}

// Get returns a post. Unapproved posts are visible only to their author and
// moderators; everyone else sees a 404, not a 403, so drafts stay invisible.
func (s *PostService) Get(ctx context.Context, id uint, viewer *models.User) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.IsApproved {
		if viewer == nil || (viewer.ID != post.UserID && !viewer.Moderator()) {
			return nil, models.NewNotFoundError("Post", id)
		}
	}
	return post, nil
}

// ListApproved returns the public feed.
func (s *PostService) ListApproved(ctx context.Context, limit, offset int) ([]models.Post, error) {
	return s.postRepo.ListApproved(ctx, limit, offset)
}

// ListPending returns unapproved posts for the moderation queue.
func (s *PostService) ListPending(ctx context.Context, limit, offset int) ([]models.Post, error) {
	return s.postRepo.ListPending(ctx, limit, offset)
}

// ListByUser returns a user's posts.
func (s *PostService) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Post, error) {
	return s.postRepo.ListByUser(ctx, userID, limit, offset)
}

// Update edits a post. Only the author or a moderator may edit; an edit by
// a non-moderator sends the post back through moderation.
func (s *PostService) Update(ctx context.Context, actor *models.User, id uint, title, content string) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.UserID != actor.ID && !actor.Moderator() {
		return nil, models.NewForbiddenError("you can only edit your own posts")
	}

	if title = strings.TrimSpace(title); title != "" {
		post.Title = title
	}
	if strings.TrimSpace(content) != "" {
		post.Content = content
	}
	if !actor.Moderator() {
		post.IsApproved = false
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Approve marks a post approved. Moderator-only; enforced at the route.
func (s *PostService) Approve(ctx context.Context, id uint) (*models.Post, error) {
	if err := s.postRepo.SetApproved(ctx, id, true); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, id)
}

// Delete removes a post (author or moderator) and triggers a score
// recompute for its author.
func (s *PostService) Delete(ctx context.Context, actor *models.User, id uint) error {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if post.UserID != actor.ID && !actor.Moderator() {
		return models.NewForbiddenError("you can only delete your own posts")
	}
	if err := s.postRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.bus.Publish(ctx, events.PostDeleted{PostID: id, AuthorID: post.UserID})
	return nil
}
