package routes

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/workmate-hq/workmate_backend/controllers"
	"github.com/workmate-hq/workmate_backend/middleware"
	"github.com/workmate-hq/workmate_backend/models"
	ws "github.com/workmate-hq/workmate_backend/websocket"
)

// RegisterUserRoutes sets up user profile routes and the websocket endpoint
func RegisterUserRoutes(e *echo.Echo, db *pgxpool.Pool, userController *controllers.UserController, hub *ws.Hub) {
	r := e.Group("/api")
	r.Use(middleware.SessionMiddleware(db))

	r.GET("/users/me", userController.Me)
	r.PUT("/users/me", userController.UpdateMe)
	r.GET("/users/:id", userController.GetUser)

	// Admin-only routes
	admin := r.Group("/admin")
	admin.Use(middleware.AdminOnly())
	admin.GET("/users", userController.ListUsers)
	admin.GET("/online-users", func(c echo.Context) error {
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Online users retrieved",
			Data:    hub.ConnectedUserIDs(),
		})
	})

	// Realtime notification stream
	r.GET("/ws", func(c echo.Context) error {
		user, err := middleware.CurrentUser(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, models.Response{
				Status:  http.StatusUnauthorized,
				Message: "Not authenticated",
			})
		}
		return ws.HandleWebSocket(c, hub, user.ID)
	})
}
