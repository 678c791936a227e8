package service

import (
	"context"

	"quill/internal/models"
	"quill/internal/repository"
)

// NotificationService exposes the read side of notifications. Creation is
// the dispatcher's job; nothing here ever writes a new notification.
type NotificationService struct {
	notifRepo repository.NotificationRepository
}

// NewNotificationService returns a new NotificationService.
func NewNotificationService(notifRepo repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifRepo: notifRepo}
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	return s.notifRepo.ListByUser(ctx, userID, unreadOnly, limit, offset)
}

// CountUnread returns the caller's unread count.
func (s *NotificationService) CountUnread(ctx context.Context, userID uint) (int64, error) {
	return s.notifRepo.CountUnread(ctx, userID)
}

// MarkRead flips one notification to read. Owners act on their own rows;
// admins may act on anyone's; anyone else gets a ForbiddenError.
func (s *NotificationService) MarkRead(ctx context.Context, actor *models.User, id uint) error {
	notification, err := s.notifRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if notification.UserID != actor.ID && !actor.IsAdmin {
		return models.NewForbiddenError("cannot act on another user's notification")
	}
	return s.notifRepo.MarkRead(ctx, id, notification.UserID)
}

// MarkAllRead flips every unread notification of the caller and returns how
// many were affected.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.notifRepo.MarkAllRead(ctx, userID)
}

// Delete removes one notification. Owners act on their own rows; admins may
// act on anyone's; anyone else gets a ForbiddenError.
func (s *NotificationService) Delete(ctx context.Context, actor *models.User, id uint) error {
	notification, err := s.notifRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if notification.UserID != actor.ID && !actor.IsAdmin {
		return models.NewForbiddenError("cannot act on another user's notification")
	}
	return s.notifRepo.Delete(ctx, id, notification.UserID)
}
