// Package server contains the HTTP handlers for Warbler's pages and API endpoints.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "warbler/docs" // swagger docs
	"warbler/internal/bootstrap"
	"warbler/internal/config"
	"warbler/internal/credentials"
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/notifications"
	"warbler/internal/repository"
	"warbler/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
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
	sessions       *middleware.Sessions
	notifier       *notifications.Notifier
	userService    *service.UserService
	followService  *service.FollowService
	messageService *service.MessageService
}

// NewServer creates a server on top of an initialized runtime.
func NewServer(rt *bootstrap.Runtime) (*Server, error) {
	return NewServerWithDeps(rt.Config, rt.DB, rt.Redis)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; token revocation and notifications are then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server: config and database are required")
	}

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("warbler-api"),
		sessions:       middleware.NewSessions(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour, redisClient),
	}

	var publisher notifications.Publisher
	if redisClient != nil {
		s.notifier = notifications.NewNotifier(redisClient)
		publisher = s.notifier
	}

	hasher := credentials.NewBcryptHasher(cfg.BcryptCost)
	s.userService = service.NewUserService(userRepo, followRepo, messageRepo, hasher)
	s.followService = service.NewFollowService(followRepo, userRepo, publisher)
	s.messageService = service.NewMessageService(messageRepo, likeRepo, userRepo, publisher)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// helmet's default CSP would block the swagger UI assets
	app.Use(helmet.New(helmet.Config{
		ContentSecurityPolicy: "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; img-src 'self' data: https:",
	}))

	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5000,http://127.0.0.1:5000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		// fiber refuses credentials together with a wildcard origin
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.IsTestLike()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))

	app.Use(s.sessions.CurrentUser())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Get("/api/swagger/*", swagger.HandlerDefault)

	app.Get("/", s.Homepage)

	// Auth
	app.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	app.Get("/login", s.LoginPage)
	app.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	app.Get("/logout", s.Logout)

	// Users. Static segments before /:id.
	users := app.Group("/users")
	users.Get("/", s.ListUsers)
	users.Post("/follow/:id", middleware.LoginRequired, s.FollowUser)
	users.Post("/stop-following/:id", middleware.LoginRequired, s.StopFollowing)
	users.Post("/profile", middleware.LoginRequired, s.UpdateProfile)
	users.Post("/delete", middleware.LoginRequired, s.DeleteUser)
	users.Get("/:id/following", middleware.LoginRequired, s.ShowFollowing)
	users.Get("/:id/followers", middleware.LoginRequired, s.ShowFollowers)
	users.Get("/:id/likes", middleware.LoginRequired, s.ShowLikes)
	users.Get("/:id", s.ShowUser)

	// Messages
	messages := app.Group("/messages")
	messages.Post("/new", middleware.LoginRequired, s.CreateMessage)
	messages.Post("/:id/delete", middleware.LoginRequired, s.DeleteMessage)
	messages.Post("/:id/like", middleware.LoginRequired, s.ToggleLike)
	messages.Get("/:id", s.ShowMessage)

	// Token-authenticated JSON aliases for API clients.
	api := app.Group("/api", middleware.AuthRequired)
	api.Get("/me", s.Me)
	api.Get("/timeline", s.Timeline)
}

// LivenessCheck handles liveness probe requests
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/live [get]
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is only required in production.
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/ready [get]
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
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
	redisDown := redisStatus == "unhealthy" || (redisStatus == "unavailable" && s.config.IsProduction())
	if dbStatus == "unhealthy" || redisDown {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "Warbler",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Warbler",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "Unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server and blocks until it stops listening.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.newApp()

	if s.notifier != nil {
		err := s.notifier.StartPatternSubscriber(s.shutdownCtx, func(userID uint, event notifications.Event) {
			middleware.Logger.Info("Notification delivered",
				slog.Uint64("user_id", uint64(userID)),
				slog.String("type", event.Type),
				slog.Uint64("actor_id", uint64(event.ActorID)),
			)
		})
		if err != nil {
			middleware.Logger.Warn("Failed to start notification subscriber", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests and cancels background subscribers.
// Connections are owned by the runtime and closed there.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			return err
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
