package server

import (
	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications (newest first).
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	unreadOnly := c.QueryBool("unread", false)

	notifications, err := s.notifService.List(c.Context(), userID(c), unreadOnly, p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	unread, err := s.notifService.CountUnread(c.Context(), userID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return respond(c, fiber.StatusOK, "Notifications", fiber.Map{
		"notifications": notifications,
		"unread_count":  unread,
	})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	actor, aerr := s.currentUser(c)
	if aerr != nil {
		return models.RespondWithAppError(c, aerr)
	}

	if merr := s.notifService.MarkRead(c.Context(), actor, id); merr != nil {
		return models.RespondWithAppError(c, merr)
	}
	return respond(c, fiber.StatusOK, "Notification marked read", nil)
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	count, err := s.notifService.MarkAllRead(c.Context(), userID(c))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return respond(c, fiber.StatusOK, "All notifications marked read", fiber.Map{
		"updated": count,
	})
}

// DeleteNotification handles DELETE /api/notifications/:id
func (s *Server) DeleteNotification(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	actor, aerr := s.currentUser(c)
	if aerr != nil {
		return models.RespondWithAppError(c, aerr)
	}

	if derr := s.notifService.Delete(c.Context(), actor, id); derr != nil {
		return models.RespondWithAppError(c, derr)
	}
	return respond(c, fiber.StatusOK, "Notification deleted", nil)
}
