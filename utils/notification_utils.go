// utils/notification_utils.go
package utils

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/workmate-hq/workmate_backend/models"
	ws "github.com/workmate-hq/workmate_backend/websocket"
)

// SaveNotification persists a notification row for a user
func SaveNotification(ctx context.Context, db *pgxpool.Pool, userID, title, message, notifType string, data interface{}) (*models.Notification, error) {
	notification := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notifType,
		Data:      data,
		IsRead:    false,
		CreatedAt: time.Now(),
	}

	var dataJSON []byte
	if data != nil {
		var err error
		dataJSON, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}

	_, err := db.Exec(ctx,
		`INSERT INTO notifications (id, user_id, title, message, type, data, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		notification.ID, notification.UserID, notification.Title, notification.Message,
		notification.Type, dataJSON, notification.IsRead, notification.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return notification, nil
}

// NotifyUser saves a notification and pushes it over the websocket hub.
// The push is best-effort; a disconnected user just reads it later.
func NotifyUser(ctx context.Context, db *pgxpool.Pool, hub *ws.Hub, userID, title, message, notifType string, data interface{}) {
	notification, err := SaveNotification(ctx, db, userID, title, message, notifType, data)
	if err != nil {
		log.Printf("failed to save notification for user %s: %v", userID, err)
		return
	}

	if hub == nil {
		return
	}

	if err := hub.SendToUser(userID, ws.Message{
		Type:    notifType,
		Message: message,
		Data:    notification,
		UserID:  userID,
	}); err != nil {
		// User not connected; the stored row is enough
		return
	}
}
