// Package server contains the HTTP handlers and routing for the API.
package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/events"
	"quill/internal/featureflags"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/notifications"
	"quill/internal/repository"
	"quill/internal/service"
	"quill/internal/taskqueue"
	"quill/internal/token"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	tokens       *token.Service
	queue        *taskqueue.Queue
	bus          *events.Bus
	notifier     *notifications.Notifier
	featureFlags *featureflags.Manager

	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	postRepo    repository.PostRepository
	ratingRepo  repository.RatingRepository
	commentRepo repository.CommentRepository
	followRepo  repository.FollowRepository
	tagRepo     repository.TagRepository
	notifRepo   repository.NotificationRepository
	tokenRepo   repository.TokenRepository
	totpRepo    repository.TOTPRepository

	authService      *service.AuthService
	twoFactorService *service.TwoFactorService
	postService      *service.PostService
	commentService   *service.CommentService
	ratingService    *service.RatingService
	followService    *service.FollowService
	tagService       *service.TagService
	notifService     *service.NotificationService
	userService      *service.UserService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	// Initialize repositories
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

	// Initialize Prometheus metrics
	prom := middleware.InitMetrics("quill-api")

	flags := featureflags.NewManager(cfg.FeatureFlags)

	tokens := token.NewService(
		cfg.JWTSecret,
		time.Duration(cfg.AccessTokenTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTokenTTLHrs)*time.Hour,
		time.Duration(cfg.ActivationTTLHrs)*time.Hour,
		tokenRepo,
		redisClient,
	)
	tokens.RotateRefresh = flags.Enabled(featureflags.FlagRefreshRotation, 0)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: prom,
		tokens:         tokens,
		queue:          taskqueue.New(redisClient),
		bus:            events.NewBus(),
		featureFlags:   flags,
		userRepo:       userRepo,
		profileRepo:    profileRepo,
		postRepo:       postRepo,
		ratingRepo:     ratingRepo,
		commentRepo:    commentRepo,
		followRepo:     followRepo,
		tagRepo:        tagRepo,
		notifRepo:      notifRepo,
		tokenRepo:      tokenRepo,
		totpRepo:       totpRepo,
	}

	server.twoFactorService = service.NewTwoFactorService(totpRepo, userRepo)
	server.authService = service.NewAuthService(userRepo, tokens, server.twoFactorService, server.bus)
	server.postService = service.NewPostService(postRepo, server.bus)
	server.commentService = service.NewCommentService(commentRepo, postRepo, server.bus)
	server.ratingService = service.NewRatingService(ratingRepo, postRepo, server.bus)
	server.followService = service.NewFollowService(followRepo, userRepo, server.bus)
	server.tagService = service.NewTagService(tagRepo, userRepo, postRepo, commentRepo, server.bus)
	server.notifService = service.NewNotificationService(notifRepo)
	server.userService = service.NewUserService(userRepo, profileRepo)

	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
	}

	server.wireEvents()

	return server, nil
}

// Queue exposes the task queue so a bootstrap layer can register handlers
// (required for inline execution when Redis is unavailable).
func (s *Server) Queue() *taskqueue.Queue {
	return s.queue
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit
	// (e.g. limiter) so browser clients still receive CORS headers on errors.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.Response{
				Type:    "error",
				Message: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Account lifecycle
	accounts := api.Group("/accounts")
	accounts.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "register"), s.Register)
	accounts.Get("/activate", s.Activate)
	accounts.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	accounts.Post("/verify-2fa", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "verify_2fa"), s.Verify2FA)
	accounts.Post("/token/refresh", s.Refresh)
	accounts.Post("/logout", s.Logout)

	// Public read surface
	api.Get("/posts", s.GetPosts)
	api.Get("/posts/:id/comments", s.GetComments)
	api.Get("/posts/:id", s.GetPost)
	api.Get("/users/top", s.GetTopProfiles)
	api.Get("/users/:id/profile", s.GetUserProfile)
	api.Get("/users/:id/metrics", s.GetUserMetrics)
	api.Get("/users/:id/followers", s.GetFollowers)
	api.Get("/users/:id/following", s.GetFollowing)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	protected.Post("/accounts/2fa/setup", s.Setup2FA)
	protected.Post("/accounts/2fa/confirm", s.Confirm2FA)
	protected.Post("/accounts/2fa/cancel", s.Cancel2FA)
	protected.Delete("/accounts/me", s.DeleteMe)

	protected.Post("/follow", middleware.RateLimit(
		s.redis, 30, time.Minute, "follow"), s.FollowUser)
	protected.Delete("/follow", s.UnfollowUser)

	protected.Post("/rate", middleware.RateLimit(
		s.redis, 30, time.Minute, "rate"), s.RatePost)
	protected.Delete("/rate", s.DeleteRating)

	protected.Post("/tags/create", middleware.RateLimit(
		s.redis, 30, time.Minute, "tag"), s.CreateTag)
	protected.Get("/tags/me", s.GetMyTags)
	protected.Delete("/tags/:id", s.DeleteTag)

	notifs := protected.Group("/notifications")
	notifs.Get("/", s.GetNotifications)
	notifs.Post("/read-all", s.MarkAllNotificationsRead)
	notifs.Post("/:id/read", s.MarkNotificationRead)
	notifs.Delete("/:id", s.DeleteNotification)

	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Get("/moderation/pending", s.StaffRequired(), s.GetPendingPosts)
	posts.Post("/:id/approve", s.StaffRequired(), s.ApprovePost)
	posts.Post("/:id/comments", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	comments := protected.Group("/comments")
	comments.Post("/:id/approve", s.StaffRequired(), s.ApproveComment)
	comments.Post("/:id/reject", s.StaffRequired(), s.RejectComment)
	comments.Delete("/:id", s.DeleteComment)

	protected.Put("/users/me/profile", s.UpdateMyProfile)
	protected.Get("/users/me", s.GetMe)

	// Admin routes
	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware. Only access tokens
// pass; refresh tokens and blacklisted jtis are rejected identically to
// forged tokens.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		parsed, err := s.tokens.Parse(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}
		if parsed.Type != token.TypeAccess {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		revoked, err := s.tokens.IsBlacklisted(c.Context(), parsed.JTI)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		}
		if revoked {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		// Store user ID in context
		c.Locals("userID", parsed.UserID)
		c.Locals("accessJTI", parsed.JTI)
		// Sync to UserContext for logging and downstream services
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, parsed.UserID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// StaffRequired rejects users without moderation rights with 403.
// Must be placed after AuthRequired.
func (s *Server) StaffRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := s.currentUser(c)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		if !user.Moderator() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Staff access required"))
		}
		return c.Next()
	}
}

// AdminRequired rejects non-admin users with 403.
// Must be placed after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := s.currentUser(c)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		if !user.IsAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// bearerToken extracts the Bearer token from the Authorization header.
func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// optionalUser attempts to resolve the caller from a Bearer token without
// enforcing authentication. Used by public reads that show more to owners
// and moderators.
func (s *Server) optionalUser(c *fiber.Ctx) *models.User {
	tokenString := bearerToken(c)
	if tokenString == "" {
		return nil
	}
	parsed, err := s.tokens.Parse(tokenString)
	if err != nil || parsed.Type != token.TypeAccess {
		return nil
	}
	if revoked, err := s.tokens.IsBlacklisted(c.Context(), parsed.JTI); err != nil || revoked {
		return nil
	}
	user, err := s.userRepo.GetByID(c.Context(), parsed.UserID)
	if err != nil {
		return nil
	}
	return user
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "Quill API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
