package server

import (
	"context"
	"fmt"
	"testing"

	"quill/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostModerationFlow(t *testing.T) {
	s, app := newTestServer(t)
	_, authorToken := createActiveUser(t, s, "author")
	_, staffToken := createStaffUser(t, s, "staff")

	status, envelope := doJSON(t, app, fiber.MethodPost, "/api/posts/", fiber.Map{
		"title":   "My first post",
		"content": "Hello world",
	}, authorToken)
	require.Equal(t, fiber.StatusCreated, status)

	post := dataMap(t, envelope)
	postID := uint(post["id"].(float64))
	assert.Equal(t, false, post["is_approved"])

	// The pending post is invisible to the public.
	status, _ = doJSON(t, app, fiber.MethodGet, fmt.Sprintf("/api/posts/%d", postID), nil, "")
	assert.Equal(t, fiber.StatusNotFound, status)

	// But the author still sees it.
	status, _ = doJSON(t, app, fiber.MethodGet, fmt.Sprintf("/api/posts/%d", postID), nil, authorToken)
	assert.Equal(t, fiber.StatusOK, status)

	// It shows up in the moderation queue, which is staff-only.
	status, _ = doJSON(t, app, fiber.MethodGet, "/api/posts/moderation/pending", nil, authorToken)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, envelope = doJSON(t, app, fiber.MethodGet, "/api/posts/moderation/pending", nil, staffToken)
	require.Equal(t, fiber.StatusOK, status)
	pending, ok := envelope.Data.([]any)
	require.True(t, ok)
	assert.Len(t, pending, 1)

	status, _ = doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/posts/%d/approve", postID), nil, authorToken)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = doJSON(t, app, fiber.MethodPost, fmt.Sprintf("/api/posts/%d/approve", postID), nil, staffToken)
	require.Equal(t, fiber.StatusOK, status)

	// Approved posts are public.
	status, _ = doJSON(t, app, fiber.MethodGet, fmt.Sprintf("/api/posts/%d", postID), nil, "")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestUpdatePostResetsApproval(t *testing.T) {
	s, app := newTestServer(t)
	author, authorToken := createActiveUser(t, s, "author")
	_, strangerToken := createActiveUser(t, s, "stranger")

	post := &models.Post{Title: "live", Content: "text", UserID: author.ID, IsApproved: true}
	require.NoError(t, s.postRepo.Create(context.Background(), post))

	status, _ := doJSON(t, app, fiber.MethodPut, fmt.Sprintf("/api/posts/%d", post.ID), fiber.Map{
		"title": "hijacked",
	}, strangerToken)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, envelope := doJSON(t, app, fiber.MethodPut, fmt.Sprintf("/api/posts/%d", post.ID), fiber.Map{
		"title": "revised",
	}, authorToken)
	require.Equal(t, fiber.StatusOK, status)
	updated := dataMap(t, envelope)
	assert.Equal(t, "revised", updated["title"])
	assert.Equal(t, false, updated["is_approved"])
}

func TestDeletePost(t *testing.T) {
	s, app := newTestServer(t)
	author, authorToken := createActiveUser(t, s, "author")

	post := &models.Post{Title: "short lived", Content: "text", UserID: author.ID, IsApproved: true}
	require.NoError(t, s.postRepo.Create(context.Background(), post))

	status, _ := doJSON(t, app, fiber.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), nil, authorToken)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, app, fiber.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), nil, authorToken)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestGetPostsFeed(t *testing.T) {
	s, app := newTestServer(t)
	author, _ := createActiveUser(t, s, "author")

	for i := 0; i < 3; i++ {
		post := &models.Post{
			Title: fmt.Sprintf("post %d", i), Content: "text",
			UserID: author.ID, IsApproved: true,
		}
		require.NoError(t, s.postRepo.Create(context.Background(), post))
	}
	draft := &models.Post{Title: "draft", Content: "text", UserID: author.ID}
	require.NoError(t, s.postRepo.Create(context.Background(), draft))

	status, envelope := doJSON(t, app, fiber.MethodGet, "/api/posts?limit=2", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	posts, ok := envelope.Data.([]any)
	require.True(t, ok)
	assert.Len(t, posts, 2)

	status, envelope = doJSON(t, app, fiber.MethodGet, "/api/posts", nil, "")
	require.Equal(t, fiber.StatusOK, status)
	posts, ok = envelope.Data.([]any)
	require.True(t, ok)
	assert.Len(t, posts, 3, "the draft must not leak into the feed")
}

func TestGetPostInvalidID(t *testing.T) {
	_, app := newTestServer(t)

	status, envelope := doJSON(t, app, fiber.MethodGet, "/api/posts/abc", nil, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "error", envelope.Type)
}
