package routes

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/workmate-hq/workmate_backend/controllers"
	"github.com/workmate-hq/workmate_backend/middleware"
)

// RegisterOrganizationRoutes sets up organization and membership routes
func RegisterOrganizationRoutes(e *echo.Echo, db *pgxpool.Pool, orgController *controllers.OrganizationController) {
	r := e.Group("/api")
	r.Use(middleware.SessionMiddleware(db))

	r.POST("/organizations", orgController.CreateOrganization)
	r.GET("/organizations", orgController.ListOrganizations)
	r.GET("/organizations/:id", orgController.GetOrganization)
	r.PUT("/organizations/:id", orgController.UpdateOrganization)
	r.DELETE("/organizations/:id", orgController.DeleteOrganization)

	r.GET("/organizations/:id/members", orgController.ListMembers)
	r.POST("/organizations/:id/members", orgController.AddMember)
	r.DELETE("/organizations/:id/members/:userId", orgController.RemoveMember)
}
