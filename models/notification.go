package models

import (
	"time"
)

// Notification types pushed over the websocket hub
const (
	NotificationTypeTaskAssigned = "task_assigned"
	NotificationTypeTaskComment  = "task_comment"
	NotificationTypeOrgInvite    = "org_invite"
)

type Notification struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	IsRead    bool        `json:"isRead"`
	CreatedAt time.Time   `json:"createdAt"`
}
