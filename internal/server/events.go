package server

import (
	"context"
	"fmt"
	"log/slog"

	"quill/internal/events"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/taskqueue"
)

// wireEvents connects domain events to asynchronous work. Publishing stays
// cheap: every subscriber only enqueues a task.
func (s *Server) wireEvents() {
	s.bus.Subscribe(events.TypeUserRegistered, func(ctx context.Context, e events.Event) {
		ev := e.(events.UserRegistered)
		user, err := s.userRepo.GetByID(ctx, ev.UserID)
		if err != nil {
			middleware.Logger.ErrorContext(ctx, "activation mail trigger failed",
				slog.Uint64("user_id", uint64(ev.UserID)), slog.String("error", err.Error()))
			return
		}
		s.enqueue(ctx, taskqueue.TaskSendActivationEmail, taskqueue.SendActivationEmailPayload{
			UserID: user.ID,
			Email:  user.Email,
			Token:  s.tokens.ActivationToken(user),
		})
	})

	s.bus.Subscribe(events.TypePostCreated, func(ctx context.Context, e events.Event) {
		ev := e.(events.PostCreated)
		s.enqueue(ctx, taskqueue.TaskRecomputeUserScore, taskqueue.RecomputeUserScorePayload{UserID: ev.AuthorID})
	})

	s.bus.Subscribe(events.TypePostDeleted, func(ctx context.Context, e events.Event) {
		ev := e.(events.PostDeleted)
		s.enqueue(ctx, taskqueue.TaskRecomputeUserScore, taskqueue.RecomputeUserScorePayload{UserID: ev.AuthorID})
	})

	ratingRecompute := func(ctx context.Context, postID uint) {
		s.enqueue(ctx, taskqueue.TaskRecomputePostStats, taskqueue.RecomputePostStatsPayload{PostID: postID})
	}

	s.bus.Subscribe(events.TypeRatingCreated, func(ctx context.Context, e events.Event) {
		ev := e.(events.RatingCreated)
		ratingRecompute(ctx, ev.PostID)
		if ev.RaterID != ev.AuthorID {
			s.notify(ctx, ev.AuthorID, models.NotificationRating,
				fmt.Sprintf("%s rated your post %d stars", s.username(ctx, ev.RaterID), ev.Value))
		}
	})

	s.bus.Subscribe(events.TypeRatingUpdated, func(ctx context.Context, e events.Event) {
		ev := e.(events.RatingUpdated)
		ratingRecompute(ctx, ev.PostID)
	})

	s.bus.Subscribe(events.TypeRatingDeleted, func(ctx context.Context, e events.Event) {
		ev := e.(events.RatingDeleted)
		ratingRecompute(ctx, ev.PostID)
	})

	s.bus.Subscribe(events.TypeFollowCreated, func(ctx context.Context, e events.Event) {
		ev := e.(events.FollowCreated)
		s.enqueue(ctx, taskqueue.TaskRecomputeUserScore, taskqueue.RecomputeUserScorePayload{UserID: ev.FollowedID})
		s.notify(ctx, ev.FollowedID, models.NotificationFollow,
			fmt.Sprintf("%s started following you", s.username(ctx, ev.FollowerID)))
	})

	s.bus.Subscribe(events.TypeFollowDeleted, func(ctx context.Context, e events.Event) {
		ev := e.(events.FollowDeleted)
		s.enqueue(ctx, taskqueue.TaskRecomputeUserScore, taskqueue.RecomputeUserScorePayload{UserID: ev.FollowedID})
	})

	s.bus.Subscribe(events.TypeCommentCreated, func(ctx context.Context, e events.Event) {
		ev := e.(events.CommentCreated)
		if ev.CommenterID == ev.PostAuthor {
			return
		}
		s.notify(ctx, ev.PostAuthor, models.NotificationComment,
			fmt.Sprintf("%s commented on your post", s.username(ctx, ev.CommenterID)))
	})

	s.bus.Subscribe(events.TypeTagCreated, func(ctx context.Context, e events.Event) {
		ev := e.(events.TagCreated)
		s.notify(ctx, ev.TaggedUserID, models.NotificationTag,
			fmt.Sprintf("%s tagged you on a %s", s.username(ctx, ev.TaggerID), ev.TargetType))
	})
}

func (s *Server) enqueue(ctx context.Context, taskType string, payload any) {
	if err := s.queue.Enqueue(ctx, taskType, payload); err != nil {
		middleware.Logger.ErrorContext(ctx, "enqueue failed",
			slog.String("task", taskType), slog.String("error", err.Error()))
	}
}

func (s *Server) notify(ctx context.Context, userID uint, typ models.NotificationType, message string) {
	s.enqueue(ctx, taskqueue.TaskDispatchNotification, taskqueue.DispatchNotificationPayload{
		UserID:  userID,
		Type:    string(typ),
		Message: message,
	})
}

func (s *Server) username(ctx context.Context, userID uint) string {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "Someone"
	}
	return user.Username
}
