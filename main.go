package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/workmate-hq/workmate_backend/config"
	"github.com/workmate-hq/workmate_backend/controllers"
	"github.com/workmate-hq/workmate_backend/middleware"
	"github.com/workmate-hq/workmate_backend/repositories"
	"github.com/workmate-hq/workmate_backend/routes"
	"github.com/workmate-hq/workmate_backend/services"
	"github.com/workmate-hq/workmate_backend/utils"
	ws "github.com/workmate-hq/workmate_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	logger := config.NewLogger()

	// Connect to Redis (optional, used for OTP attempt limiting)
	rdb := config.ConnectRedis()
	defer config.CloseRedis()

	// Connect to database
	db := config.ConnectDB()
	defer db.Close()

	// Create WebSocket hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	// Create a new Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeadersWithConfig(middleware.SecurityConfig{
		AllowedDomains: []string{"*"},
		AllowInlineJS:  false,
		AllowEval:      false,
	}))

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "OK",
			"message": "Workmate Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":   "unhealthy",
				"database": "unreachable",
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Upload storage
	for _, dir := range []string{"uploads/attachments", "uploads/thumbnails"} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatal().Err(err).Str("dir", dir).Msg("failed to create upload directory")
		}
	}
	e.Static("/uploads", "uploads")

	// Initialize repositories and services
	otpRepo := repositories.NewOTPRepository(db)
	userRepo := repositories.NewUserRepository(db)
	identity := services.NewIdentityService()
	mailer := utils.NewEmailService()

	// Initialize controllers
	authController := controllers.NewAuthController(otpRepo, userRepo, identity, mailer, rdb, logger)
	userController := controllers.NewUserController(db, userRepo, logger)
	orgController := controllers.NewOrganizationController(db, wsHub, logger)
	projectController := controllers.NewProjectController(db, logger)
	taskController := controllers.NewTaskController(db, wsHub, logger)
	commentController := controllers.NewCommentController(db, wsHub, logger)
	attachmentController := controllers.NewAttachmentController(db, logger)
	notificationController := controllers.NewNotificationController(db, logger)

	// Register routes
	routes.RegisterAuthRoutes(e, authController)
	routes.RegisterUserRoutes(e, db, userController, wsHub)
	routes.RegisterOrganizationRoutes(e, db, orgController)
	routes.RegisterProjectRoutes(e, db, projectController)
	routes.RegisterTaskRoutes(e, db, taskController, commentController, attachmentController)
	routes.RegisterNotificationRoutes(e, db, notificationController)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Info().Str("port", port).Msg("starting server")
	if err := e.Start(":" + port); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
