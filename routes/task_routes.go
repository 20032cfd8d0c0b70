package routes

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/workmate-hq/workmate_backend/controllers"
	"github.com/workmate-hq/workmate_backend/middleware"
)

// RegisterTaskRoutes sets up task, comment and attachment routes
func RegisterTaskRoutes(e *echo.Echo, db *pgxpool.Pool, taskController *controllers.TaskController,
	commentController *controllers.CommentController, attachmentController *controllers.AttachmentController) {
	r := e.Group("/api")
	r.Use(middleware.SessionMiddleware(db))

	r.POST("/projects/:projectId/tasks", taskController.CreateTask)
	r.GET("/projects/:projectId/tasks", taskController.ListTasks)
	r.GET("/tasks/:id", taskController.GetTask)
	r.PUT("/tasks/:id", taskController.UpdateTask)
	r.DELETE("/tasks/:id", taskController.DeleteTask)

	r.POST("/tasks/:taskId/comments", commentController.CreateComment)
	r.GET("/tasks/:taskId/comments", commentController.ListComments)
	r.DELETE("/comments/:id", commentController.DeleteComment)

	r.POST("/tasks/:taskId/attachments", attachmentController.UploadAttachment)
	r.GET("/tasks/:taskId/attachments", attachmentController.ListAttachments)
	r.DELETE("/attachments/:id", attachmentController.DeleteAttachment)
}
