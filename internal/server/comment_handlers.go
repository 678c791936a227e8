package server

import (
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, cerr := s.commentService.Create(c.Context(), userID(c), postID, req.Content)
	if cerr != nil {
		return models.RespondWithAppError(c, cerr)
	}
	return respond(c, fiber.StatusCreated, "Comment created", comment)
}

// GetComments handles GET /api/posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	p := parsePagination(c, 20)
	comments, cerr := s.commentService.ListByPost(c.Context(), postID, s.optionalUser(c), p.Limit, p.Offset)
	if cerr != nil {
		return models.RespondWithAppError(c, cerr)
	}
	return respond(c, fiber.StatusOK, "Comments", comments)
}

// ApproveComment handles POST /api/comments/:id/approve (staff)
func (s *Server) ApproveComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	comment, aerr := s.commentService.SetApproved(c.Context(), id, true)
	if aerr != nil {
		return models.RespondWithAppError(c, aerr)
	}
	return respond(c, fiber.StatusOK, "Comment approved", comment)
}

// RejectComment handles POST /api/comments/:id/reject (staff)
func (s *Server) RejectComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	comment, rerr := s.commentService.SetApproved(c.Context(), id, false)
	if rerr != nil {
		return models.RespondWithAppError(c, rerr)
	}
	return respond(c, fiber.StatusOK, "Comment rejected", comment)
}

// DeleteComment handles DELETE /api/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	actor, aerr := s.currentUser(c)
	if aerr != nil {
		return models.RespondWithAppError(c, aerr)
	}

	if derr := s.commentService.Delete(c.Context(), actor, id); derr != nil {
		return models.RespondWithAppError(c, derr)
	}
	return respond(c, fiber.StatusOK, "Comment deleted", nil)
}
