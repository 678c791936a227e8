package bootstrap

import (
	"context"
	"encoding/json"
	"net/url"

	"quill/internal/aggregation"
	"quill/internal/config"
	"quill/internal/mailer"
	"quill/internal/notifications"
	"quill/internal/repository"
	"quill/internal/taskqueue"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// RegisterTaskHandlers binds every task type to its handler. Both the worker
// binary and the API server (for inline mode when Redis is down) call this so
// the two processes agree on task semantics.
func RegisterTaskHandlers(q *taskqueue.Queue, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	engine := aggregation.NewEngine(db)
	dispatcher := notifications.NewDispatcher(
		repository.NewNotificationRepository(db),
		notifications.NewNotifier(rdb),
	)
	mail := mailer.NewFromConfig(cfg)

	q.Register(taskqueue.TaskRecomputePostStats, func(ctx context.Context, payload json.RawMessage) error {
		var p taskqueue.RecomputePostStatsPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		return engine.RecomputePostStats(ctx, p.PostID)
	})

	q.Register(taskqueue.TaskRecomputeUserScore, func(ctx context.Context, payload json.RawMessage) error {
		var p taskqueue.RecomputeUserScorePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		return engine.RecomputeUserScore(ctx, p.UserID)
	})

	q.Register(taskqueue.TaskDispatchNotification, dispatcher.HandleDispatch)

	q.Register(taskqueue.TaskSendActivationEmail, func(ctx context.Context, payload json.RawMessage) error {
		var p taskqueue.SendActivationEmailPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		activationURL := cfg.BaseURL + "/api/accounts/activate?token=" + url.QueryEscape(p.Token)
		return mail.SendActivation(ctx, p.Email, activationURL)
	})
}
