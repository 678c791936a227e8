package server

import (
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateTag handles POST /api/tags/create
func (s *Server) CreateTag(c *fiber.Ctx) error {
	var req struct {
		TaggedUser  uint   `json:"tagged_user"`
		ContentType string `json:"content_type"`
		ObjectID    uint   `json:"object_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.TaggedUser == 0 || req.ObjectID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("tagged_user, content_type, and object_id are required"))
	}

	tag, err := s.tagService.Create(c.Context(), userID(c), req.TaggedUser,
		models.TagTarget(req.ContentType), req.ObjectID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respond(c, fiber.StatusCreated, "Tag created", tag)
}

// GetMyTags handles GET /api/tags/me
func (s *Server) GetMyTags(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	tags, err := s.tagService.ListForUser(c.Context(), userID(c), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respond(c, fiber.StatusOK, "Tags", tags)
}

// DeleteTag handles DELETE /api/tags/:id
func (s *Server) DeleteTag(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	actor, aerr := s.currentUser(c)
	if aerr != nil {
		return models.RespondWithAppError(c, aerr)
	}

	if derr := s.tagService.Delete(c.Context(), actor, id); derr != nil {
		return models.RespondWithAppError(c, derr)
	}
	return respond(c, fiber.StatusOK, "Tag removed", nil)
}
