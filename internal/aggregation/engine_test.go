package aggregation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"quill/internal/models"
	"quill/internal/taskqueue"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", Password: "x", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.Profile{UserID: user.ID}).Error)
	require.NoError(t, db.Create(&models.PopularityMetrics{UserID: user.ID}).Error)
	return user
}

func seedPost(t *testing.T, db *gorm.DB, author *models.User, title string) *models.Post {
	t.Helper()
	post := &models.Post{Title: title, Content: "content", UserID: author.ID, IsApproved: true}
	require.NoError(t, db.Create(post).Error)
	return post
}

func TestRecomputePostStats(t *testing.T) {
	db := testutil.OpenTestDB(t)
	engine := NewEngine(db)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	rater1 := seedUser(t, db, "rater1")
	rater2 := seedUser(t, db, "rater2")
	post := seedPost(t, db, author, "first post")

	require.NoError(t, db.Create(&models.Rating{UserID: rater1.ID, PostID: post.ID, Value: 4}).Error)
	require.NoError(t, db.Create(&models.Rating{UserID: rater2.ID, PostID: post.ID, Value: 2}).Error)

	require.NoError(t, engine.RecomputePostStats(ctx, post.ID))

	var got models.Post
	require.NoError(t, db.First(&got, post.ID).Error)
	assert.InDelta(t, 3.0, got.AverageRating, 1e-9)
	assert.Equal(t, 2, got.TotalRatings)

	// The author's metrics were refreshed transitively.
	var metrics models.PopularityMetrics
	require.NoError(t, db.Where("user_id = ?", author.ID).First(&metrics).Error)
	assert.Equal(t, 1, metrics.TotalPosts)
	assert.Equal(t, 2, metrics.TotalRatingsReceived)
	assert.InDelta(t, 3.0, metrics.AverageRating, 1e-9)
	assert.InDelta(t, models.ComputeEngagementScore(3.0, 1, 2), metrics.EngagementScore, 1e-9)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	db := testutil.OpenTestDB(t)
	engine := NewEngine(db)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	rater := seedUser(t, db, "rater")
	post := seedPost(t, db, author, "idempotent post")
	require.NoError(t, db.Create(&models.Rating{UserID: rater.ID, PostID: post.ID, Value: 5}).Error)

	require.NoError(t, engine.RecomputePostStats(ctx, post.ID))

	var first models.PopularityMetrics
	require.NoError(t, db.Where("user_id = ?", author.ID).First(&first).Error)

	// Replay the same task several times; the aggregates must not drift.
	require.NoError(t, engine.RecomputePostStats(ctx, post.ID))
	require.NoError(t, engine.RecomputeUserScore(ctx, author.ID))
	require.NoError(t, engine.RecomputePostStats(ctx, post.ID))

	var again models.PopularityMetrics
	require.NoError(t, db.Where("user_id = ?", author.ID).First(&again).Error)
	assert.Equal(t, first.TotalPosts, again.TotalPosts)
	assert.Equal(t, first.TotalRatingsReceived, again.TotalRatingsReceived)
	assert.InDelta(t, first.EngagementScore, again.EngagementScore, 1e-9)
}

func TestRecomputeConvergesUnderReordering(t *testing.T) {
	values := []int{5, 1, 4, 2, 3}
	orders := [][]int{
		{0, 1, 2, 3, 4},
		{4, 3, 2, 1, 0},
		{2, 0, 4, 1, 3},
	}

	// Applying the same set of ratings in any arrival order must land on the
	// same final aggregates, because every recompute reads full state.
	var want float64
	for i, order := range orders {
		db := testutil.OpenTestDB(t)
		engine := NewEngine(db)
		ctx := context.Background()

		author := seedUser(t, db, "author")
		post := seedPost(t, db, author, "reordered post")
		raters := make([]*models.User, len(values))
		for j := range values {
			raters[j] = seedUser(t, db, fmt.Sprintf("rater%d", j))
		}

		for _, idx := range order {
			require.NoError(t, db.Create(&models.Rating{
				UserID: raters[idx].ID, PostID: post.ID, Value: values[idx],
			}).Error)
			require.NoError(t, engine.RecomputePostStats(ctx, post.ID))
		}

		var got models.Post
		require.NoError(t, db.First(&got, post.ID).Error)
		assert.Equal(t, len(values), got.TotalRatings)
		if i == 0 {
			want = got.AverageRating
		} else {
			assert.InDelta(t, want, got.AverageRating, 1e-9)
		}
	}
	assert.InDelta(t, 3.0, want, 1e-9)
}

func TestRecomputeVanishedSubjectsSkip(t *testing.T) {
	db := testutil.OpenTestDB(t)
	engine := NewEngine(db)
	ctx := context.Background()

	assert.ErrorIs(t, engine.RecomputePostStats(ctx, 9999), taskqueue.ErrSkip)
	assert.ErrorIs(t, engine.RecomputeUserScore(ctx, 9999), taskqueue.ErrSkip)
}

func TestRecomputeUserScoreMirrorsProfile(t *testing.T) {
	db := testutil.OpenTestDB(t)
	engine := NewEngine(db)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	rater := seedUser(t, db, "rater")
	post := seedPost(t, db, author, "scored post")
	require.NoError(t, db.Create(&models.Rating{UserID: rater.ID, PostID: post.ID, Value: 4}).Error)
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", post.ID).
		Update("average_rating", 4.0).Error)

	before := time.Now().Add(-time.Second)
	require.NoError(t, engine.RecomputeUserScore(ctx, author.ID))

	var metrics models.PopularityMetrics
	require.NoError(t, db.Where("user_id = ?", author.ID).First(&metrics).Error)
	assert.True(t, metrics.LastUpdated.After(before))

	var profile models.Profile
	require.NoError(t, db.Where("user_id = ?", author.ID).First(&profile).Error)
	assert.InDelta(t, metrics.EngagementScore, profile.PopularityScore, 1e-9)
}

func TestRecomputeCreatesMissingMetricsRow(t *testing.T) {
	db := testutil.OpenTestDB(t)
	engine := NewEngine(db)
	ctx := context.Background()

	user := &models.User{Username: "bare", Email: "bare@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.Profile{UserID: user.ID}).Error)

	require.NoError(t, engine.RecomputeUserScore(ctx, user.ID))

	var count int64
	require.NoError(t, db.Model(&models.PopularityMetrics{}).
		Where("user_id = ?", user.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
