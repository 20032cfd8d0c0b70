// models/errors.go
package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the auth core. Controllers map these to HTTP
// statuses exactly once at the transport boundary.
var (
	ErrInvalidOrExpiredCode = errors.New("invalid or expired verification code")
	ErrSignupIncomplete     = errors.New("complete OTP verification before logging in")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailAlreadyInUse    = errors.New("email already in use")
	ErrPasswordTooShort     = errors.New("password must be at least 6 characters")
	ErrTooManyOTPAttempts   = errors.New("too many verification attempts")
)

// IdentityProviderError is a provider-side rejection (duplicate email,
// policy violation, outage). Status is the provider's HTTP status.
type IdentityProviderError struct {
	Status  int
	Message string
}

func (e *IdentityProviderError) Error() string {
	return fmt.Sprintf("identity provider error (%d): %s", e.Status, e.Message)
}

// EmailDispatchError wraps an SMTP/transport failure. For the signup OTP
// email it surfaces to the caller; for the welcome email it is only logged.
type EmailDispatchError struct {
	Err error
}

func (e *EmailDispatchError) Error() string {
	return "failed to dispatch email: " + e.Err.Error()
}

func (e *EmailDispatchError) Unwrap() error {
	return e.Err
}
