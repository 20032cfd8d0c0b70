package models

import (
	"time"
)

// EmailOTP is one issued verification code. Rows are append-mostly: a
// code is never deleted, only marked consumed on successful verification.
type EmailOTP struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Code      string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	Consumed  bool      `json:"consumed"`
	CreatedAt time.Time `json:"createdAt"`
}
