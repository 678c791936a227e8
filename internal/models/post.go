package models

import (
	"time"

	"gorm.io/gorm"
)

// Post represents a blog post in the Quill application.
// AverageRating and TotalRatings are denormalized rating aggregates owned by
// the aggregation engine; they always hold the last fully computed values.
type Post struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Title         string         `gorm:"unique;not null" json:"title"`
	Content       string         `gorm:"type:text;not null" json:"content"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	User          User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	IsApproved    bool           `gorm:"not null;default:false" json:"is_approved"`
	AverageRating float64        `gorm:"not null;default:0" json:"average_rating"`
	TotalRatings  int            `gorm:"not null;default:0" json:"total_ratings"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}
