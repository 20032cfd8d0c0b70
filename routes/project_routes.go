package routes

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/workmate-hq/workmate_backend/controllers"
	"github.com/workmate-hq/workmate_backend/middleware"
)

// RegisterProjectRoutes sets up project routes
func RegisterProjectRoutes(e *echo.Echo, db *pgxpool.Pool, projectController *controllers.ProjectController) {
	r := e.Group("/api")
	r.Use(middleware.SessionMiddleware(db))

	r.POST("/organizations/:orgId/projects", projectController.CreateProject)
	r.GET("/organizations/:orgId/projects", projectController.ListProjects)
	r.GET("/projects/:id", projectController.GetProject)
	r.PUT("/projects/:id", projectController.UpdateProject)
	r.DELETE("/projects/:id", projectController.DeleteProject)
}
