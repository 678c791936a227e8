package service

import (
	"context"
	"testing"
	"time"

	"quill/internal/events"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/testutil"
	"quill/internal/token"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testPassword = "CorrectHorse9!pass"

// env wires real repositories over an in-memory database so service tests
// exercise the full stack below the HTTP layer.
type env struct {
	db       *gorm.DB
	bus      *events.Bus
	tokens   *token.Service
	users    repository.UserRepository
	profiles repository.ProfileRepository
	posts    repository.PostRepository
	ratings  repository.RatingRepository
	comments repository.CommentRepository
	follows  repository.FollowRepository
	tags     repository.TagRepository
	notifs   repository.NotificationRepository
	totp     repository.TOTPRepository
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.OpenTestDB(t)
	return &env{
		db:       db,
		bus:      events.NewBus(),
		tokens:   token.NewService("test-secret", 15*time.Minute, 168*time.Hour, 4*time.Hour, repository.NewTokenRepository(db), nil),
		users:    repository.NewUserRepository(db),
		profiles: repository.NewProfileRepository(db),
		posts:    repository.NewPostRepository(db),
		ratings:  repository.NewRatingRepository(db),
		comments: repository.NewCommentRepository(db),
		follows:  repository.NewFollowRepository(db),
		tags:     repository.NewTagRepository(db),
		notifs:   repository.NewNotificationRepository(db),
		totp:     repository.NewTOTPRepository(db),
	}
}

func (e *env) authService() *AuthService {
	twoFactor := NewTwoFactorService(e.totp, e.users)
	return NewAuthService(e.users, e.tokens, twoFactor, e.bus)
}

func (e *env) activeUser(t *testing.T, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hash),
		IsActive: true,
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

func (e *env) moderator(t *testing.T, username string) *models.User {
	t.Helper()
	user := e.activeUser(t, username)
	user.IsStaff = true
	require.NoError(t, e.users.Update(context.Background(), user))
	return user
}

func (e *env) approvedPost(t *testing.T, author *models.User, title string) *models.Post {
	t.Helper()
	post := &models.Post{Title: title, Content: "content", UserID: author.ID, IsApproved: true}
	require.NoError(t, e.posts.Create(context.Background(), post))
	return post
}

// countEvents subscribes a counter for the given event type.
func countEvents(bus *events.Bus, eventType string) *int {
	n := new(int)
	bus.Subscribe(eventType, func(_ context.Context, _ events.Event) {
		*n++
	})
	return n
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.Truef(t, ok, "expected *models.AppError, got %T: %v", err, err)
	require.Equal(t, code, appErr.Code)
}
