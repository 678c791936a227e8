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

func TestTagFlow(t *testing.T) {
	s, app := newTestServer(t)
	ctx := context.Background()

	tagger, taggerToken := createActiveUser(t, s, "tagger")
	tagged, taggedToken := createActiveUser(t, s, "tagged")

	post := &models.Post{Title: "tagged post", Content: "text", UserID: tagger.ID, IsApproved: true}
	require.NoError(t, s.postRepo.Create(ctx, post))

	status, envelope := doJSON(t, app, fiber.MethodPost, "/api/tags/create", fiber.Map{
		"tagged_user":  tagged.ID,
		"content_type": "post",
		"object_id":    post.ID,
	}, taggerToken)
	require.Equal(t, fiber.StatusCreated, status)
	tagID := uint(dataMap(t, envelope)["id"].(float64))

	// The tagged user was notified.
	notifs, err := s.notifRepo.ListByUser(ctx, tagged.ID, true, 20, 0)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, models.NotificationTag, notifs[0].Type)
	assert.Contains(t, notifs[0].Message, tagger.Username)

	status, envelope = doJSON(t, app, fiber.MethodGet, "/api/tags/me", nil, taggedToken)
	require.Equal(t, fiber.StatusOK, status)
	tags, ok := envelope.Data.([]any)
	require.True(t, ok)
	assert.Len(t, tags, 1)

	status, _ = doJSON(t, app, fiber.MethodDelete, fmt.Sprintf("/api/tags/%d", tagID), nil, taggedToken)
	require.Equal(t, fiber.StatusOK, status)
}

func TestTagRejections(t *testing.T) {
	s, app := newTestServer(t)
	ctx := context.Background()

	tagger, taggerToken := createActiveUser(t, s, "tagger")
	tagged, _ := createActiveUser(t, s, "tagged")
	_, strangerToken := createActiveUser(t, s, "stranger")

	post := &models.Post{Title: "tagged post", Content: "text", UserID: tagger.ID, IsApproved: true}
	require.NoError(t, s.postRepo.Create(ctx, post))

	status, _ := doJSON(t, app, fiber.MethodPost, "/api/tags/create", fiber.Map{
		"tagged_user":  tagged.ID,
		"content_type": "story",
		"object_id":    post.ID,
	}, taggerToken)
	assert.Equal(t, fiber.StatusBadRequest, status, "unknown target type")

	status, _ = doJSON(t, app, fiber.MethodPost, "/api/tags/create", fiber.Map{
		"tagged_user":  tagger.ID,
		"content_type": "post",
		"object_id":    post.ID,
	}, taggerToken)
	assert.Equal(t, fiber.StatusBadRequest, status, "self tag")

	status, envelope := doJSON(t, app, fiber.MethodPost, "/api/tags/create", fiber.Map{
		"tagged_user":  tagged.ID,
		"content_type": "post",
		"object_id":    post.ID,
	}, taggerToken)
	require.Equal(t, fiber.StatusCreated, status)
	tagID := uint(dataMap(t, envelope)["id"].(float64))

	status, _ = doJSON(t, app, fiber.MethodPost, "/api/tags/create", fiber.Map{
		"tagged_user":  tagged.ID,
		"content_type": "post",
		"object_id":    post.ID,
	}, taggerToken)
	assert.Equal(t, fiber.StatusConflict, status, "duplicate tag on the same target")

	status, _ = doJSON(t, app, fiber.MethodDelete, fmt.Sprintf("/api/tags/%d", tagID), nil, strangerToken)
	assert.Equal(t, fiber.StatusForbidden, status)
}
