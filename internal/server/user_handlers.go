package server

import (
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetMe handles GET /api/users/me
func (s *Server) GetMe(c *fiber.Ctx) error {
	user, err := s.userService.GetUser(c.Context(), userID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respond(c, fiber.StatusOK, "User", user)
}

// GetUserProfile handles GET /api/users/:id/profile
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	profile, perr := s.userService.GetProfile(c.Context(), id)
	if perr != nil {
		return models.RespondWithAppError(c, perr)
	}
	return respond(c, fiber.StatusOK, "Profile", profile)
}

// UpdateMyProfile handles PUT /api/users/me/profile
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Bio      string `json:"bio"`
		ImageURL string `json:"image_url"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	profile, err := s.userService.UpdateProfile(c.Context(), userID(c), req.Bio, req.ImageURL)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respond(c, fiber.StatusOK, "Profile updated", profile)
}

// GetUserMetrics handles GET /api/users/:id/metrics
func (s *Server) GetUserMetrics(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	metrics, merr := s.userService.GetMetrics(c.Context(), id)
	if merr != nil {
		return models.RespondWithAppError(c, merr)
	}
	return respond(c, fiber.StatusOK, "Metrics", metrics)
}

// GetTopProfiles handles GET /api/users/top
func (s *Server) GetTopProfiles(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	profiles, err := s.userService.TopProfiles(c.Context(), p.Limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respond(c, fiber.StatusOK, "Top profiles", profiles)
}
