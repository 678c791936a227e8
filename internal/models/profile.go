package models

import (
	"time"
)

// MaxBioLength is the upper bound for profile bios.
const MaxBioLength = 500

// Profile holds per-user presentation data plus denormalized social counts.
// FollowerCount and FollowingCount always mirror the live count of Follow
// rows; they are recomputed by count on every follow mutation, never
// incremented. PopularityScore mirrors the engagement score computed by the
// aggregation engine.
type Profile struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Bio             string    `gorm:"size:500" json:"bio"`
	ImageURL        string    `json:"image_url"`
	FollowerCount   int       `gorm:"not null;default:0" json:"follower_count"`
	FollowingCount  int       `gorm:"not null;default:0" json:"following_count"`
	PopularityScore float64   `gorm:"not null;default:0" json:"popularity_score"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
