package repository

import (
	"context"
	"testing"

	"quill/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatingRepository_CreateAndFetch(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	ratings := NewRatingRepository(db)

	author := mustCreateUser(t, db, "author")
	rater := mustCreateUser(t, db, "rater")
	post := mustCreatePost(t, db, author, "rated post", true)

	missing, err := ratings.GetByUserAndPost(ctx, rater.ID, post.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	rating := &models.Rating{UserID: rater.ID, PostID: post.ID, Value: 4}
	require.NoError(t, ratings.Create(ctx, rating))

	got, err := ratings.GetByUserAndPost(ctx, rater.ID, post.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 4, got.Value)
}

func TestRatingRepository_DuplicatePairIsConflict(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	ratings := NewRatingRepository(db)

	author := mustCreateUser(t, db, "author")
	rater := mustCreateUser(t, db, "rater")
	post := mustCreatePost(t, db, author, "rated post", true)

	require.NoError(t, ratings.Create(ctx, &models.Rating{UserID: rater.ID, PostID: post.ID, Value: 4}))
	err := ratings.Create(ctx, &models.Rating{UserID: rater.ID, PostID: post.ID, Value: 5})
	assertAppErrorCode(t, err, models.CodeConflict)
}

func TestRatingRepository_UpdateValue(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	ratings := NewRatingRepository(db)

	author := mustCreateUser(t, db, "author")
	rater := mustCreateUser(t, db, "rater")
	post := mustCreatePost(t, db, author, "rated post", true)

	rating := &models.Rating{UserID: rater.ID, PostID: post.ID, Value: 4}
	require.NoError(t, ratings.Create(ctx, rating))
	require.NoError(t, ratings.UpdateValue(ctx, rating.ID, 2))

	got, err := ratings.GetByUserAndPost(ctx, rater.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Value)

	// Still a single row for the pair.
	var count int64
	require.NoError(t, db.Model(&models.Rating{}).
		Where("user_id = ? AND post_id = ?", rater.ID, post.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
