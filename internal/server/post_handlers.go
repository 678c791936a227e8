package server

import (
	"quill/internal/cache"
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.Create(c.Context(), userID(c), req.Title, req.Content)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respond(c, fiber.StatusCreated, "Post created and awaiting approval", post)
}

// GetPosts handles GET /api/posts; the first page of the public feed is
// served from cache.
func (s *Server) GetPosts(c *fiber.Ctx) error {
	p := parsePagination(c, 20)

	if p.Offset == 0 && p.Limit == 20 {
		var posts []models.Post
		err := cache.Aside(c.Context(), cache.PostListKey, &posts, cache.PostListTTL, func() error {
			var ferr error
			posts, ferr = s.postService.ListApproved(c.Context(), p.Limit, p.Offset)
			return ferr
		})
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		return respond(c, fiber.StatusOK, "Posts", posts)
	}

	posts, err := s.postService.ListApproved(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respond(c, fiber.StatusOK, "Posts", posts)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.Get(c.Context(), id, s.optionalUser(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respond(c, fiber.StatusOK, "Post", post)
}

// GetPendingPosts handles GET /api/posts/moderation/pending (staff)
func (s *Server) GetPendingPosts(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	posts, err := s.postService.ListPending(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respond(c, fiber.StatusOK, "Pending posts", posts)
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	actor, aerr := s.currentUser(c)
	if aerr != nil {
		return models.RespondWithAppError(c, aerr)
	}

	post, uerr := s.postService.Update(c.Context(), actor, id, req.Title, req.Content)
	if uerr != nil {
		return models.RespondWithAppError(c, uerr)
	}
	return respond(c, fiber.StatusOK, "Post updated", post)
}

// ApprovePost handles POST /api/posts/:id/approve (staff)
func (s *Server) ApprovePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, aerr := s.postService.Approve(c.Context(), id)
	if aerr != nil {
		return models.RespondWithAppError(c, aerr)
	}
	return respond(c, fiber.StatusOK, "Post approved", post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	actor, aerr := s.currentUser(c)
	if aerr != nil {
		return models.RespondWithAppError(c, aerr)
	}

	if derr := s.postService.Delete(c.Context(), actor, id); derr != nil {
		return models.RespondWithAppError(c, derr)
	}
	return respond(c, fiber.StatusOK, "Post deleted", nil)
}
