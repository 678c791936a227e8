package server

import (
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// FollowUser handles POST /api/follow
func (s *Server) FollowUser(c *fiber.Ctx) error {
	var req struct {
		Followed uint `json:"followed"`
	}
	if err := c.BodyParser(&req); err != nil || req.Followed == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("followed is required"))
	}

	if err := s.followService.Follow(c.Context(), userID(c), req.Followed); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respond(c, fiber.StatusCreated, "Now following", nil)
}

// UnfollowUser handles DELETE /api/follow
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	var req struct {
		Followed uint `json:"followed"`
	}
	if err := c.BodyParser(&req); err != nil || req.Followed == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("followed is required"))
	}

	if err := s.followService.Unfollow(c.Context(), userID(c), req.Followed); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respond(c, fiber.StatusOK, "Unfollowed", nil)
}

// GetFollowers handles GET /api/users/:id/followers
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	p := parsePagination(c, 20)
	users, ferr := s.followService.Followers(c.Context(), id, p.Limit, p.Offset)
	if ferr != nil {
		return models.RespondWithAppError(c, ferr)
	}
	return respond(c, fiber.StatusOK, "Followers", users)
}

// GetFollowing handles GET /api/users/:id/following
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	p := parsePagination(c, 20)
	users, ferr := s.followService.Following(c.Context(), id, p.Limit, p.Offset)
	if ferr != nil {
		return models.RespondWithAppError(c, ferr)
	}
	return respond(c, fiber.StatusOK, "Following", users)
}
