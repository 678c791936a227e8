package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"quill/internal/bootstrap"
	"quill/internal/config"
	"quill/internal/events"
	"quill/internal/featureflags"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/service"
	"quill/internal/taskqueue"
	"quill/internal/testutil"
	"quill/internal/token"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "CorrectHorse9!pass"

// newTestServer wires a Server over an in-memory database with the task
// queue in inline mode, so the full event pipeline (recomputes and
// notification rows) runs synchronously inside each request.
//
// The Prometheus middleware is left nil: metric registration is global and
// would collide across tests.
func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	db := testutil.OpenTestDB(t)

	cfg := &config.Config{
		JWTSecret:          "test-secret",
		Env:                "test",
		AccessTokenTTLMin:  15,
		RefreshTokenTTLHrs: 168,
		ActivationTTLHrs:   4,
		FeatureFlags:       "refresh_rotation=off",
	}

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	postRepo := repository.NewPostRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)
	tagRepo := repository.NewTagRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	totpRepo := repository.NewTOTPRepository(db)

	tokens := token.NewService(cfg.JWTSecret,
		time.Duration(cfg.AccessTokenTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTokenTTLHrs)*time.Hour,
		time.Duration(cfg.ActivationTTLHrs)*time.Hour,
		tokenRepo, nil)

	s := &Server{
		config:       cfg,
		db:           db,
		tokens:       tokens,
		queue:        taskqueue.New(nil),
		bus:          events.NewBus(),
		featureFlags: featureflags.NewManager(cfg.FeatureFlags),
		userRepo:     userRepo,
		profileRepo:  profileRepo,
		postRepo:     postRepo,
		ratingRepo:   ratingRepo,
		commentRepo:  commentRepo,
		followRepo:   followRepo,
		tagRepo:      tagRepo,
		notifRepo:    notifRepo,
		tokenRepo:    tokenRepo,
		totpRepo:     totpRepo,
	}

	s.twoFactorService = service.NewTwoFactorService(totpRepo, userRepo)
	s.authService = service.NewAuthService(userRepo, tokens, s.twoFactorService, s.bus)
	s.postService = service.NewPostService(postRepo, s.bus)
	s.commentService = service.NewCommentService(commentRepo, postRepo, s.bus)
	s.ratingService = service.NewRatingService(ratingRepo, postRepo, s.bus)
	s.followService = service.NewFollowService(followRepo, userRepo, s.bus)
	s.tagService = service.NewTagService(tagRepo, userRepo, postRepo, commentRepo, s.bus)
	s.notifService = service.NewNotificationService(notifRepo)
	s.userService = service.NewUserService(userRepo, profileRepo)

	s.wireEvents()
	bootstrap.RegisterTaskHandlers(s.queue, db, nil, cfg)

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app
}

// createActiveUser inserts an activated account and returns it with a valid
// access token.
func createActiveUser(t *testing.T, s *Server, username string) (*models.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hash),
		IsActive: true,
	}
	require.NoError(t, s.userRepo.Create(context.Background(), user))

	access, _, err := s.tokens.IssueAccess(user.ID, user.Username)
	require.NoError(t, err)
	return user, access
}

func createStaffUser(t *testing.T, s *Server, username string) (*models.User, string) {
	t.Helper()
	user, access := createActiveUser(t, s, username)
	user.IsStaff = true
	require.NoError(t, s.userRepo.Update(context.Background(), user))
	return user, access
}

// doJSON performs a request against the fiber app and decodes the uniform
// response envelope. A non-JSON body fails the test.
func doJSON(t *testing.T, app *fiber.App, method, path string, body any, bearer string) (int, models.Response) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope models.Response
	require.NoErrorf(t, json.Unmarshal(raw, &envelope), "body: %s", raw)
	return resp.StatusCode, envelope
}

// dataMap coerces the envelope's data field into a map for field assertions.
func dataMap(t *testing.T, envelope models.Response) map[string]any {
	t.Helper()
	m, ok := envelope.Data.(map[string]any)
	require.Truef(t, ok, "expected object data, got %T", envelope.Data)
	return m
}
