package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/taskqueue"
)

// Store is the subset of the notification repository the dispatcher needs.
type Store interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Dispatcher consumes dispatch_notification tasks: it writes the durable
// notification row and then publishes a best-effort real-time hint.
type Dispatcher struct {
	store    Store
	notifier *Notifier
}

// NewDispatcher creates a dispatcher over the given store and notifier.
func NewDispatcher(store Store, notifier *Notifier) *Dispatcher {
	return &Dispatcher{store: store, notifier: notifier}
}

// HandleDispatch is the task handler for taskqueue.TaskDispatchNotification.
// A recipient deleted between enqueue and delivery skips the task.
func (d *Dispatcher) HandleDispatch(ctx context.Context, payload json.RawMessage) error {
	var p taskqueue.DispatchNotificationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}

	notification := models.Notification{
		UserID:  p.UserID,
		Type:    models.NotificationType(p.Type),
		Message: p.Message,
	}
	if err := d.store.Create(ctx, &notification); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == models.CodeNotFound {
			return taskqueue.ErrSkip
		}
		return err
	}

	middleware.NotificationsCreated.WithLabelValues(p.Type).Inc()

	hint, err := json.Marshal(map[string]any{
		"id":      notification.ID,
		"type":    p.Type,
		"message": p.Message,
	})
	if err == nil {
		if perr := d.notifier.PublishUser(ctx, p.UserID, string(hint)); perr != nil {
			middleware.Logger.WarnContext(ctx, "notification hint publish failed",
				slog.Uint64("user_id", uint64(p.UserID)),
				slog.String("error", perr.Error()),
			)
		}
	}
	return nil
}
