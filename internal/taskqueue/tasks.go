package taskqueue

// Task type names shared by producers (HTTP services, event subscribers)
// and the worker process.
const (
	TaskRecomputePostStats   = "recompute_post_stats"
	TaskRecomputeUserScore   = "recompute_user_score"
	TaskDispatchNotification = "dispatch_notification"
	TaskSendActivationEmail  = "send_activation_email"
)

// RecomputePostStatsPayload asks the aggregation engine to refresh a post's
// rating aggregates (and, transitively, its author's score).
type RecomputePostStatsPayload struct {
	PostID uint `json:"post_id"`
}

// RecomputeUserScorePayload asks the aggregation engine to refresh a user's
// popularity metrics.
type RecomputeUserScorePayload struct {
	UserID uint `json:"user_id"`
}

// DispatchNotificationPayload creates one notification row for a recipient.
type DispatchNotificationPayload struct {
	UserID  uint   `json:"user_id"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SendActivationEmailPayload delivers the account-activation link.
type SendActivationEmailPayload struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}
