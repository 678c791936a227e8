package models

import (
	"time"
)

// Rating bounds for the 1-5 star scale.
const (
	MinRatingValue = 1
	MaxRatingValue = 5
)

// Rating is a user's star rating of a post. The (UserID, PostID) pair is
// unique; rating the same post again updates the existing row in place.
// Deletion is a hard delete so the unique slot frees up immediately and a
// later re-rating creates a fresh row.
type Rating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_rating_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_rating_user_post" json:"post_id"`
	Value     int       `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Post Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
}
