// Package aggregation recomputes denormalized rating statistics and
// per-user popularity metrics. Every operation reads current full state and
// rewrites the aggregate wholesale, so replays and out-of-order delivery
// converge to the same result.
package aggregation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"quill/internal/cache"
	"quill/internal/models"
	"quill/internal/taskqueue"

	"gorm.io/gorm"
)

// keyedMutex serializes work per aggregate key. Entries are never removed;
// the key space (active users/posts on this worker) stays small enough that
// reclaiming them is not worth the bookkeeping.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// Engine owns the recomputation of post rating stats and user popularity
// scores. Both operations are idempotent and serialize per aggregate, so
// concurrent triggers for the same user cannot interleave their
// read-aggregate-write cycles.
type Engine struct {
	db    *gorm.DB
	locks keyedMutex
}

// NewEngine creates an aggregation engine over the given database.
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// RecomputePostStats refreshes a post's average rating and rating count
// from the raw rating rows, then refreshes the author's popularity metrics.
// A vanished post is a no-op (taskqueue.ErrSkip), not a failure.
func (e *Engine) RecomputePostStats(ctx context.Context, postID uint) error {
	mu := e.locks.get(fmt.Sprintf("post:%d", postID))
	mu.Lock()

	var post models.Post
	if err := e.db.WithContext(ctx).First(&post, postID).Error; err != nil {
		mu.Unlock()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return taskqueue.ErrSkip
		}
		return err
	}

	var agg struct {
		Avg   float64
		Count int
	}
	err := e.db.WithContext(ctx).Model(&models.Rating{}).
		Select("COALESCE(AVG(value), 0) AS avg, COUNT(*) AS count").
		Where("post_id = ?", postID).
		Scan(&agg).Error
	if err != nil {
		mu.Unlock()
		return err
	}

	err = e.db.WithContext(ctx).Model(&post).Updates(map[string]any{
		"average_rating": agg.Avg,
		"total_ratings":  agg.Count,
	}).Error
	mu.Unlock()
	if err != nil {
		return err
	}

	cache.InvalidatePost(ctx, postID)

	return e.RecomputeUserScore(ctx, post.UserID)
}

// RecomputeUserScore rewrites a user's PopularityMetrics from the current
// aggregate state of their posts and mirrors the engagement score onto the
// profile. A vanished user is a no-op (taskqueue.ErrSkip).
func (e *Engine) RecomputeUserScore(ctx context.Context, userID uint) error {
	mu := e.locks.get(fmt.Sprintf("user:%d", userID))
	mu.Lock()
	defer mu.Unlock()

	var user models.User
	if err := e.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return taskqueue.ErrSkip
		}
		return err
	}

	var postAgg struct {
		Count int
		Avg   float64
	}
	err := e.db.WithContext(ctx).Model(&models.Post{}).
		Select("COUNT(*) AS count, COALESCE(AVG(average_rating), 0) AS avg").
		Where("user_id = ?", userID).
		Scan(&postAgg).Error
	if err != nil {
		return err
	}

	var ratingsReceived int64
	err = e.db.WithContext(ctx).Model(&models.Rating{}).
		Joins("JOIN posts ON posts.id = ratings.post_id AND posts.deleted_at IS NULL").
		Where("posts.user_id = ?", userID).
		Count(&ratingsReceived).Error
	if err != nil {
		return err
	}

	score := models.ComputeEngagementScore(postAgg.Avg, postAgg.Count, int(ratingsReceived))
	now := time.Now()

	metrics := models.PopularityMetrics{
		UserID:               userID,
		TotalPosts:           postAgg.Count,
		TotalRatingsReceived: int(ratingsReceived),
		AverageRating:        postAgg.Avg,
		EngagementScore:      score,
		LastUpdated:          now,
	}

	res := e.db.WithContext(ctx).Model(&models.PopularityMetrics{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"total_posts":            metrics.TotalPosts,
			"total_ratings_received": metrics.TotalRatingsReceived,
			"average_rating":         metrics.AverageRating,
			"engagement_score":       metrics.EngagementScore,
			"last_updated":           now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Metrics row missing (registration race); create it.
		if err := e.db.WithContext(ctx).Create(&metrics).Error; err != nil {
			return err
		}
	}

	if err := e.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Update("popularity_score", score).Error; err != nil {
		return err
	}

	cache.InvalidateUser(ctx, userID)
	return nil
}
