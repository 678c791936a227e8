package server

import (
	"time"

	"quill/internal/models"
	"quill/internal/token"

	"github.com/gofiber/fiber/v2"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

// Register handles POST /api/accounts/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username, email, and password are required"))
	}

	user, err := s.authService.Register(c.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return respond(c, fiber.StatusCreated,
		"Account created. Check your email for the activation link.", fiber.Map{
			"user": user,
		})
}

// Activate handles GET /api/accounts/activate?token=
func (s *Server) Activate(c *fiber.Ctx) error {
	tokenString := c.Query("token")
	if tokenString == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Activation token required"))
	}

	user, pair, err := s.authService.Activate(c.Context(), tokenString)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.setAuthCookies(c, pair)
	return respond(c, fiber.StatusOK, "Account activated", fiber.Map{
		"user":   user,
		"tokens": pair,
	})
}

// Login handles POST /api/accounts/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.authService.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	if result.TwoFactorRequired {
		return c.Status(fiber.StatusOK).JSON(models.Response{
			Type:    "2fa_required",
			Message: "Enter the code from your authenticator app",
			Data:    fiber.Map{"user_id": result.UserID},
		})
	}

	s.setAuthCookies(c, result.Pair)
	return respond(c, fiber.StatusOK, "Logged in", fiber.Map{
		"tokens": result.Pair,
	})
}

// Verify2FA handles POST /api/accounts/verify-2fa
func (s *Server) Verify2FA(c *fiber.Ctx) error {
	var req struct {
		UserID uint   `json:"user_id"`
		Code   string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil || req.UserID == 0 || req.Code == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("user_id and code are required"))
	}

	pair, err := s.authService.Verify2FA(c.Context(), req.UserID, req.Code)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.setAuthCookies(c, pair)
	return respond(c, fiber.StatusOK, "Logged in", fiber.Map{
		"tokens": pair,
	})
}

// Refresh handles POST /api/accounts/token/refresh
func (s *Server) Refresh(c *fiber.Ctx) error {
	refreshToken := s.refreshTokenFrom(c)
	pair, err := s.authService.Refresh(c.Context(), refreshToken)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.setAuthCookies(c, pair)
	return respond(c, fiber.StatusOK, "Token refreshed", fiber.Map{
		"tokens": pair,
	})
}

// Logout handles POST /api/accounts/logout
func (s *Server) Logout(c *fiber.Ctx) error {
	refreshToken := s.refreshTokenFrom(c)
	accessToken := bearerToken(c)
	if accessToken == "" {
		accessToken = c.Cookies(accessCookie)
	}

	if err := s.authService.Logout(c.Context(), refreshToken, accessToken); err != nil {
		return models.RespondWithAppError(c, err)
	}

	s.clearAuthCookies(c)
	return respond(c, fiber.StatusOK, "Logged out", nil)
}

// DeleteMe handles DELETE /api/accounts/me
func (s *Server) DeleteMe(c *fiber.Ctx) error {
	if err := s.authService.DeleteAccount(c.Context(), userID(c)); err != nil {
		return models.RespondWithAppError(c, err)
	}
	s.clearAuthCookies(c)
	return respond(c, fiber.StatusOK, "Account deleted", nil)
}

// refreshTokenFrom reads the refresh token from the cookie or, failing
// that, the request body.
func (s *Server) refreshTokenFrom(c *fiber.Ctx) string {
	if cookie := c.Cookies(refreshCookie); cookie != "" {
		return cookie
	}
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := c.BodyParser(&req); err == nil && req.Refresh != "" {
		return req.Refresh
	}
	return ""
}

func (s *Server) setAuthCookies(c *fiber.Ctx, pair *token.Pair) {
	secure := s.config.Env == "production" || s.config.Env == "prod"
	c.Cookie(&fiber.Cookie{
		Name:     accessCookie,
		Value:    pair.Access,
		Expires:  pair.AccessExpiresAt,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: "Lax",
		Path:     "/",
	})
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookie,
		Value:    pair.Refresh,
		Expires:  pair.RefreshExpiresAt,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: "Lax",
		Path:     "/api/accounts",
	})
}

func (s *Server) clearAuthCookies(c *fiber.Ctx) {
	expired := time.Now().Add(-time.Hour)
	c.Cookie(&fiber.Cookie{
		Name: accessCookie, Value: "", Expires: expired,
		HTTPOnly: true, SameSite: "Lax", Path: "/",
	})
	c.Cookie(&fiber.Cookie{
		Name: refreshCookie, Value: "", Expires: expired,
		HTTPOnly: true, SameSite: "Lax", Path: "/api/accounts",
	})
}
