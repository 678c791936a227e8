package repository

import (
	"context"
	"testing"

	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// assertAppErrorCode asserts err is an *models.AppError with the given code.
func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.Truef(t, ok, "expected *models.AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code)
}

func mustCreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	repo := NewUserRepository(db)
	user := &models.User{Username: username, Email: username + "@example.com", Password: "hash", IsActive: true}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func mustCreatePost(t *testing.T, db *gorm.DB, author *models.User, title string, approved bool) *models.Post {
	t.Helper()
	repo := NewPostRepository(db)
	post := &models.Post{Title: title, Content: "content", UserID: author.ID, IsApproved: approved}
	require.NoError(t, repo.Create(context.Background(), post))
	return post
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.OpenTestDB(t)
}
