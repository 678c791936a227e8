package models

import (
	"time"
)

// Engagement score weights. The score is a pure function of current
// aggregate state and is always recomputed wholesale, never patched.
const (
	EngagementWeightAverageRating = 0.6
	EngagementWeightTotalPosts    = 0.2
	EngagementWeightTotalRatings  = 0.2
)

// PopularityMetrics is the per-user aggregate recomputed by the aggregation
// engine. One row per user, created at registration.
type PopularityMetrics struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	UserID               uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	TotalPosts           int       `gorm:"not null;default:0" json:"total_posts"`
	TotalRatingsReceived int       `gorm:"not null;default:0" json:"total_ratings_received"`
	AverageRating        float64   `gorm:"not null;default:0" json:"average_rating"`
	EngagementScore      float64   `gorm:"not null;default:0" json:"engagement_score"`
	LastUpdated          time.Time `json:"last_updated"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// ComputeEngagementScore applies the authoritative scoring formula.
func ComputeEngagementScore(averageRating float64, totalPosts, totalRatings int) float64 {
	return averageRating*EngagementWeightAverageRating +
		float64(totalPosts)*EngagementWeightTotalPosts +
		float64(totalRatings)*EngagementWeightTotalRatings
}
