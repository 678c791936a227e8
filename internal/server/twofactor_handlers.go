package server

import (
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Setup2FA handles POST /api/accounts/2fa/setup
func (s *Server) Setup2FA(c *fiber.Ctx) error {
	setup, err := s.twoFactorService.SetupStart(c.Context(), userID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respond(c, fiber.StatusOK,
		"Scan the provisioning URI and confirm with a code", setup)
}

// Confirm2FA handles POST /api/accounts/2fa/confirm
func (s *Server) Confirm2FA(c *fiber.Ctx) error {
	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil || req.Code == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("code is required"))
	}

	if err := s.twoFactorService.SetupConfirm(c.Context(), userID(c), req.Code); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respond(c, fiber.StatusOK, "Two-factor authentication enabled", nil)
}

// Cancel2FA handles POST /api/accounts/2fa/cancel
func (s *Server) Cancel2FA(c *fiber.Ctx) error {
	if err := s.twoFactorService.SetupCancel(c.Context(), userID(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respond(c, fiber.StatusOK, "Two-factor setup cancelled", nil)
}
