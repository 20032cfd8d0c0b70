// controllers/task_controller.go
package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/workmate-hq/workmate_backend/middleware"
	"github.com/workmate-hq/workmate_backend/models"
	"github.com/workmate-hq/workmate_backend/utils"
	ws "github.com/workmate-hq/workmate_backend/websocket"
)

// TaskController serves the kanban task endpoints
type TaskController struct {
	DB     *pgxpool.Pool
	hub    *ws.Hub
	logger zerolog.Logger
}

func NewTaskController(db *pgxpool.Pool, hub *ws.Hub, logger zerolog.Logger) *TaskController {
	return &TaskController{
		DB:     db,
		hub:    hub,
		logger: logger.With().Str("component", "tasks").Logger(),
	}
}

const taskColumns = `id, project_id, title, description, status, priority, assignee_id, due_date, created_by, created_at, updated_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status,
		&t.Priority, &t.AssigneeID, &t.DueDate, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// taskAccess loads a task's project org and verifies membership
func (tc *TaskController) taskAccess(ctx context.Context, taskID, userID string) (bool, error) {
	var orgID string
	err := tc.DB.QueryRow(ctx,
		`SELECT p.org_id FROM tasks t JOIN projects p ON p.id = t.project_id WHERE t.id = $1`,
		taskID).Scan(&orgID)
	if err != nil {
		return false, err
	}
	return isOrgMember(ctx, tc.DB, orgID, userID)
}

// CreateTask creates a task in a project whose organization the caller
// belongs to. Assigning someone notifies them.
func (tc *TaskController) CreateTask(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	projectID := c.Param("projectId")

	var req models.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Task title is required",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	orgID, err := projectOrg(ctx, tc.DB, projectID)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Project not found",
		})
	}
	member, err := isOrgMember(ctx, tc.DB, orgID, user.ID)
	if err != nil || !member {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Not a member of this organization",
		})
	}

	priority := req.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}

	task := models.Task{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Title:       utils.SanitizeInput(req.Title),
		Description: utils.SanitizeInput(req.Description),
		Status:      models.TaskStatusTodo,
		Priority:    priority,
		DueDate:     req.DueDate,
		CreatedBy:   user.ID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if req.AssigneeID != "" {
		task.AssigneeID = &req.AssigneeID
	}

	_, err = tc.DB.Exec(ctx,
		`INSERT INTO tasks (id, project_id, title, description, status, priority, assignee_id, due_date, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		task.ID, task.ProjectID, task.Title, task.Description, task.Status,
		task.Priority, task.AssigneeID, task.DueDate, task.CreatedBy, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		tc.logger.Error().Err(err).Msg("failed to create task")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create task",
		})
	}

	if task.AssigneeID != nil && *task.AssigneeID != user.ID {
		utils.NotifyUser(ctx, tc.DB, tc.hub, *task.AssigneeID,
			"Task assigned",
			user.Name+" assigned you: "+task.Title,
			models.NotificationTypeTaskAssigned,
			map[string]string{"taskId": task.ID, "projectId": projectID})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Task created",
		Data:    task,
	})
}

// ListTasks lists a project's tasks, optionally filtered by kanban column
func (tc *TaskController) ListTasks(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	projectID := c.Param("projectId")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	orgID, err := projectOrg(ctx, tc.DB, projectID)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Project not found",
		})
	}
	member, err := isOrgMember(ctx, tc.DB, orgID, user.ID)
	if err != nil || !member {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Not a member of this organization",
		})
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE project_id = $1`
	args := []interface{}{projectID}
	if status := c.QueryParam("status"); status != "" {
		if !models.ValidTaskStatus(status) {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid task status",
			})
		}
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := tc.DB.Query(ctx, query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to list tasks",
		})
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to list tasks",
			})
		}
		tasks = append(tasks, *t)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Tasks retrieved",
		Data:    tasks,
	})
}

// GetTask returns one task the caller may see
func (tc *TaskController) GetTask(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ok, err := tc.taskAccess(ctx, taskID, user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Task not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to get task",
		})
	}
	if !ok {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Not a member of this organization",
		})
	}

	t, err := scanTask(tc.DB.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, taskID))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to get task",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Task retrieved",
		Data:    t,
	})
}

// UpdateTask applies partial updates; a changed assignee gets notified
func (tc *TaskController) UpdateTask(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	taskID := c.Param("id")

	var req models.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	if req.Status != nil && !models.ValidTaskStatus(*req.Status) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid task status",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ok, err := tc.taskAccess(ctx, taskID, user.ID)
	if err != nil || !ok {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Not a member of this organization",
		})
	}

	existing, err := scanTask(tc.DB.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, taskID))
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Task not found",
		})
	}

	var title, description *string
	if req.Title != nil {
		s := utils.SanitizeInput(*req.Title)
		title = &s
	}
	if req.Description != nil {
		s := utils.SanitizeInput(*req.Description)
		description = &s
	}

	t, err := scanTask(tc.DB.QueryRow(ctx,
		`UPDATE tasks SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			status = COALESCE($4, status),
			priority = COALESCE($5, priority),
			assignee_id = COALESCE($6, assignee_id),
			due_date = COALESCE($7, due_date),
			updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+taskColumns,
		taskID, title, description, req.Status, req.Priority, req.AssigneeID, req.DueDate))
	if err != nil {
		tc.logger.Error().Err(err).Msg("failed to update task")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update task",
		})
	}

	// New assignee gets a notification
	if req.AssigneeID != nil && *req.AssigneeID != user.ID &&
		(existing.AssigneeID == nil || *existing.AssigneeID != *req.AssigneeID) {
		utils.NotifyUser(ctx, tc.DB, tc.hub, *req.AssigneeID,
			"Task assigned",
			user.Name+" assigned you: "+t.Title,
			models.NotificationTypeTaskAssigned,
			map[string]string{"taskId": t.ID, "projectId": t.ProjectID})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Task updated",
		Data:    t,
	})
}

// DeleteTask removes a task
func (tc *TaskController) DeleteTask(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ok, err := tc.taskAccess(ctx, taskID, user.ID)
	if err != nil || !ok {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Not a member of this organization",
		})
	}

	if _, err := tc.DB.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, taskID); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to delete task",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Task deleted",
	})
}
