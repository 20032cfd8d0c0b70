// models/user.go
package models

import (
	"time"
)

// User is the application's own profile row, keyed by email. The id is
// local to Workmate and distinct from the identity provider's user id.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	Role         string    `json:"role,omitempty"`
	Department   string    `json:"department,omitempty"`
	Status       string    `json:"status,omitempty"` // "active", "inactive"
	OrgIDs       []string  `json:"orgIds,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserUpdate carries the mutable profile fields; nil means "leave as is".
type UserUpdate struct {
	Name         *string
	PasswordHash *string
	Role         *string
	Department   *string
	Status       *string
}

// UpdateProfileRequest is the body for PUT /api/users/me
type UpdateProfileRequest struct {
	Name       string `json:"name"`
	Department string `json:"department"`
}

// Response is the generic API response envelope
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
