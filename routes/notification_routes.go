package routes

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/workmate-hq/workmate_backend/controllers"
	"github.com/workmate-hq/workmate_backend/middleware"
)

// RegisterNotificationRoutes sets up notification routes
func RegisterNotificationRoutes(e *echo.Echo, db *pgxpool.Pool, notificationController *controllers.NotificationController) {
	r := e.Group("/api")
	r.Use(middleware.SessionMiddleware(db))

	r.GET("/notifications", notificationController.ListNotifications)
	r.PUT("/notifications/:id/read", notificationController.MarkRead)
	r.PUT("/notifications/read-all", notificationController.MarkAllRead)
}
