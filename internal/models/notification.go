package models

import (
	"time"
)

// NotificationType tags the domain event a notification originated from.
type NotificationType string

const (
	// NotificationFollow is sent to a user who gained a follower.
	NotificationFollow NotificationType = "follow"
	// NotificationComment is sent to a post author when someone comments.
	NotificationComment NotificationType = "comment"
	// NotificationRating is sent to a post author when someone rates.
	NotificationRating NotificationType = "rating"
	// NotificationTag is sent to a user mentioned on a post or comment.
	NotificationTag NotificationType = "tag"
)

// Notification is created exclusively by the notification dispatcher.
// Delivery is at-least-once, so duplicates can occur and are tolerated.
type Notification struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	UserID    uint             `gorm:"not null;index" json:"user_id"`
	Type      NotificationType `gorm:"type:varchar(16);not null" json:"type"`
	Message   string           `gorm:"not null" json:"message"`
	IsRead    bool             `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
