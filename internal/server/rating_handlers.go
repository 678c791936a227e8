package server

import (
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// RatePost handles POST /api/rate. A repeat rating by the same user updates
// the existing one (200) instead of creating a duplicate (201).
func (s *Server) RatePost(c *fiber.Ctx) error {
	var req struct {
		Post  uint `json:"post"`
		Value int  `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil || req.Post == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("post and value are required"))
	}

	rating, created, err := s.ratingService.Rate(c.Context(), userID(c), req.Post, req.Value)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if created {
		return respond(c, fiber.StatusCreated, "Rating created", rating)
	}
	return respond(c, fiber.StatusOK, "Rating updated", rating)
}

// DeleteRating handles DELETE /api/rate
func (s *Server) DeleteRating(c *fiber.Ctx) error {
	var req struct {
		Post uint `json:"post"`
	}
	if err := c.BodyParser(&req); err != nil || req.Post == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("post is required"))
	}

	if err := s.ratingService.Delete(c.Context(), userID(c), req.Post); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respond(c, fiber.StatusOK, "Rating removed", nil)
}
