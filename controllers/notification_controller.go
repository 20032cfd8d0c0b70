// controllers/notification_controller.go
package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/workmate-hq/workmate_backend/middleware"
	"github.com/workmate-hq/workmate_backend/models"
)

// NotificationController serves in-app notifications
type NotificationController struct {
	DB     *pgxpool.Pool
	logger zerolog.Logger
}

func NewNotificationController(db *pgxpool.Pool, logger zerolog.Logger) *NotificationController {
	return &NotificationController{
		DB:     db,
		logger: logger.With().Str("component", "notifications").Logger(),
	}
}

// ListNotifications returns the caller's notifications, newest first
func (nc *NotificationController) ListNotifications(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	query := `SELECT id, user_id, title, message, type, data, is_read, created_at
		 FROM notifications WHERE user_id = $1`
	args := []interface{}{user.ID}
	if c.QueryParam("unread") == "true" {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	rows, err := nc.DB.Query(ctx, query, args...)
	if err != nil {
		nc.logger.Error().Err(err).Msg("failed to list notifications")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to list notifications",
		})
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var data []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &data, &n.IsRead, &n.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to list notifications",
			})
		}
		if len(data) > 0 {
			var parsed interface{}
			if json.Unmarshal(data, &parsed) == nil {
				n.Data = parsed
			}
		}
		notifications = append(notifications, n)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notifications retrieved",
		Data:    notifications,
	})
}

// MarkRead marks one of the caller's notifications as read
func (nc *NotificationController) MarkRead(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	notificationID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tag, err := nc.DB.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`,
		notificationID, user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update notification",
		})
	}
	if tag.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Notification not found",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notification marked read",
	})
}

// MarkAllRead marks all the caller's notifications as read
func (nc *NotificationController) MarkAllRead(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if _, err := nc.DB.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`, user.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update notifications",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "All notifications marked read",
	})
}
