// controllers/comment_controller.go
package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/workmate-hq/workmate_backend/middleware"
	"github.com/workmate-hq/workmate_backend/models"
	"github.com/workmate-hq/workmate_backend/utils"
	ws "github.com/workmate-hq/workmate_backend/websocket"
)

// CommentController serves task comments
type CommentController struct {
	DB     *pgxpool.Pool
	hub    *ws.Hub
	logger zerolog.Logger
}

func NewCommentController(db *pgxpool.Pool, hub *ws.Hub, logger zerolog.Logger) *CommentController {
	return &CommentController{
		DB:     db,
		hub:    hub,
		logger: logger.With().Str("component", "comments").Logger(),
	}
}

// CreateComment adds a comment to a task and notifies the assignee
func (cc *CommentController) CreateComment(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	taskID := c.Param("taskId")

	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	body := utils.SanitizeInput(req.Body)
	if body == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Comment body is required",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ok, err := commentTaskAccess(ctx, cc.DB, taskID, user.ID)
	if err != nil || !ok {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Not a member of this organization",
		})
	}

	comment := models.Comment{
		ID:         uuid.NewString(),
		TaskID:     taskID,
		AuthorID:   user.ID,
		AuthorName: user.Name,
		Body:       body,
		CreatedAt:  time.Now(),
	}

	_, err = cc.DB.Exec(ctx,
		`INSERT INTO comments (id, task_id, author_id, body, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		comment.ID, comment.TaskID, comment.AuthorID, comment.Body, comment.CreatedAt)
	if err != nil {
		cc.logger.Error().Err(err).Msg("failed to create comment")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create comment",
		})
	}

	// Notify the task assignee, unless they wrote the comment
	var assigneeID *string
	var taskTitle string
	if err := cc.DB.QueryRow(ctx,
		`SELECT assignee_id, title FROM tasks WHERE id = $1`, taskID).
		Scan(&assigneeID, &taskTitle); err == nil &&
		assigneeID != nil && *assigneeID != user.ID {
		utils.NotifyUser(ctx, cc.DB, cc.hub, *assigneeID,
			"New comment",
			user.Name+" commented on "+taskTitle,
			models.NotificationTypeTaskComment,
			map[string]string{"taskId": taskID, "commentId": comment.ID})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Comment created",
		Data:    comment,
	})
}

// ListComments lists a task's comments, oldest first
func (cc *CommentController) ListComments(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	taskID := c.Param("taskId")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ok, err := commentTaskAccess(ctx, cc.DB, taskID, user.ID)
	if err != nil || !ok {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Not a member of this organization",
		})
	}

	rows, err := cc.DB.Query(ctx,
		`SELECT c.id, c.task_id, c.author_id, u.name, c.body, c.created_at
		 FROM comments c
		 JOIN users u ON u.id = c.author_id
		 WHERE c.task_id = $1
		 ORDER BY c.created_at`, taskID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to list comments",
		})
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var m models.Comment
		if err := rows.Scan(&m.ID, &m.TaskID, &m.AuthorID, &m.AuthorName, &m.Body, &m.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to list comments",
			})
		}
		comments = append(comments, m)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Comments retrieved",
		Data:    comments,
	})
}

// DeleteComment removes a comment; only its author may
func (cc *CommentController) DeleteComment(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	commentID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tag, err := cc.DB.Exec(ctx,
		`DELETE FROM comments WHERE id = $1 AND author_id = $2`, commentID, user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to delete comment",
		})
	}
	if tag.RowsAffected() == 0 {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Comment not found or not yours",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Comment deleted",
	})
}

// commentTaskAccess verifies the caller may see the task's organization
func commentTaskAccess(ctx context.Context, db *pgxpool.Pool, taskID, userID string) (bool, error) {
	var orgID string
	err := db.QueryRow(ctx,
		`SELECT p.org_id FROM tasks t JOIN projects p ON p.id = t.project_id WHERE t.id = $1`,
		taskID).Scan(&orgID)
	if err != nil {
		return false, err
	}
	return isOrgMember(ctx, db, orgID, userID)
}
