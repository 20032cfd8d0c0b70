// controllers/auth_controller.go
package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/workmate-hq/workmate_backend/models"
	"github.com/workmate-hq/workmate_backend/security"
	"github.com/workmate-hq/workmate_backend/services"
	"github.com/workmate-hq/workmate_backend/utils"
)

// OTPStore persists and validates one-time signup codes
type OTPStore interface {
	Create(ctx context.Context, email, code string, expiresAt time.Time) error
	HasPending(ctx context.Context, email string) (bool, error)
	Consume(ctx context.Context, email, code string) (*models.EmailOTP, error)
}

// UserStore maintains local user profiles
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
}

// IdentityProvider delegates credential storage and session issuance to
// the managed auth backend
type IdentityProvider interface {
	CreateIdentity(ctx context.Context, email, password string, metadata map[string]interface{}) (*services.Principal, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
}

// Mailer sends transactional email
type Mailer interface {
	SendOTPEmail(to, code string, expiresAt time.Time) error
	SendWelcomeEmail(to, name string) error
}

// AuthController coordinates the two-phase signup protocol: request OTP,
// verify OTP, provision identity and local profile, issue session.
type AuthController struct {
	otps     OTPStore
	users    UserStore
	identity IdentityProvider
	mailer   Mailer
	redis    *redis.Client
	logger   zerolog.Logger
}

// NewAuthController creates a new auth controller
func NewAuthController(otps OTPStore, users UserStore, identity IdentityProvider, mailer Mailer, rdb *redis.Client, logger zerolog.Logger) *AuthController {
	return &AuthController{
		otps:     otps,
		users:    users,
		identity: identity,
		mailer:   mailer,
		redis:    rdb,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// Signup handler. Issues and emails an OTP; no identity or profile row
// exists until the code is verified.
func (ac *AuthController) Signup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	// Parse request body
	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	// Validate and sanitize email
	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email format",
		})
	}
	req.Email = email

	if len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Password must be at least 6 characters",
		})
	}

	// Generate the code and persist it before dispatching; a sending
	// failure must not lose an already-issued code
	code, err := utils.GenerateOTP()
	if err != nil {
		ac.logger.Error().Err(err).Msg("failed to generate OTP")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate verification code",
		})
	}

	expiresAt := time.Now().Add(utils.OTPValidity)
	if err := ac.otps.Create(ctx, req.Email, code, expiresAt); err != nil {
		ac.logger.Error().Err(err).Msg("failed to store OTP")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to process signup",
		})
	}

	if err := ac.mailer.SendOTPEmail(req.Email, code, expiresAt); err != nil {
		// The row is persisted, so retrying /signup stays safe
		ac.logger.Error().Err(err).Str("email", req.Email).Msg("failed to send OTP email")
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Failed to send verification email, please try again",
		})
	}

	// Same message whether or not the address is known anywhere
	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "OTP sent to your email",
		Data: map[string]interface{}{
			"email":     req.Email,
			"expiresAt": expiresAt,
		},
	})
}

// VerifyOTP handler. Consumes the code, provisions the identity and local
// profile, and logs the verified account in.
func (ac *AuthController) VerifyOTP(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	// Parse request body
	var req models.VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	// Validate and sanitize inputs
	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email format",
		})
	}
	req.Email = email

	if !utils.IsValidOTPCode(req.Code) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Verification code must be 6 digits",
		})
	}

	if len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Password must be at least 6 characters",
		})
	}

	// Throttle verification attempts per email
	if err := utils.ValidateOTPAttempts(ctx, req.Email, ac.redis); err != nil {
		if errors.Is(err, models.ErrTooManyOTPAttempts) {
			return c.JSON(http.StatusTooManyRequests, models.Response{
				Status:  http.StatusTooManyRequests,
				Message: "Too many verification attempts, try again later",
			})
		}
		ac.logger.Warn().Err(err).Msg("OTP attempt limiter unavailable")
	}

	// Consume the code; this marks exactly one row and fails on
	// expired, unknown or already-consumed codes
	otp, err := ac.otps.Consume(ctx, req.Email, req.Code)
	if err != nil {
		if errors.Is(err, models.ErrInvalidOrExpiredCode) {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid or expired verification code",
			})
		}
		ac.logger.Error().Err(err).Msg("failed to consume OTP")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to verify code",
		})
	}
	ac.logger.Info().Str("otpId", otp.ID).Str("email", req.Email).
		Time("issuedAt", otp.CreatedAt).Msg("verification code consumed")

	// Provision the identity. A failure here is terminal for the
	// request; the code stays consumed and the user requests a new one.
	var metadata map[string]interface{}
	if req.Metadata != nil {
		metadata = map[string]interface{}{
			"name":       req.Metadata.Name,
			"role":       req.Metadata.Role,
			"department": req.Metadata.Department,
		}
	}

	if _, err := ac.identity.CreateIdentity(ctx, req.Email, req.Password, metadata); err != nil {
		var provErr *models.IdentityProviderError
		if errors.As(err, &provErr) {
			ac.logger.Error().Int("providerStatus", provErr.Status).Str("email", req.Email).
				Msg("identity provider rejected account creation")
			return c.JSON(provErr.Status, models.Response{
				Status:  provErr.Status,
				Message: provErr.Message,
			})
		}
		ac.logger.Error().Err(err).Msg("identity provider call failed")
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Failed to create account",
		})
	}

	// Hash the password for the local profile row
	passwordHash, err := security.HashPassword(req.Password)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	user, err := ac.upsertProfile(ctx, req.Email, passwordHash, req.Metadata)
	if err != nil {
		ac.logger.Error().Err(err).Str("email", req.Email).Msg("failed to upsert user profile")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create user profile",
		})
	}

	// Welcome email is best-effort; never fails the request
	go func(to, name string) {
		if err := ac.mailer.SendWelcomeEmail(to, name); err != nil {
			ac.logger.Warn().Err(err).Str("email", to).Msg("failed to send welcome email")
		}
	}(user.Email, user.Name)

	// Verification logs the user straight in
	result, err := ac.identity.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, models.Response{
				Status:  http.StatusUnauthorized,
				Message: "Invalid credentials",
			})
		}
		ac.logger.Error().Err(err).Msg("post-verification login failed")
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Account created but login failed, please log in",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Account verified",
		Data: models.AuthData{
			User:         user,
			AccessToken:  result.Session.AccessToken,
			RefreshToken: result.Session.RefreshToken,
			TokenType:    result.Session.TokenType,
			ExpiresIn:    result.Session.ExpiresIn,
		},
	})
}

// upsertProfile creates the local profile or refreshes its password hash.
// An already-set display name is never overwritten with the default
// derived from the email.
func (ac *AuthController) upsertProfile(ctx context.Context, email, passwordHash string, metadata *models.SignupMetadata) (*models.User, error) {
	name := ""
	if metadata != nil {
		name = strings.TrimSpace(metadata.Name)
	}
	if name == "" {
		name = utils.EmailLocalPart(email)
	}

	existing, err := ac.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrUserNotFound) {
			return nil, err
		}

		user := &models.User{
			Email:        email,
			Name:         name,
			PasswordHash: passwordHash,
		}
		if metadata != nil {
			user.Role = metadata.Role
			user.Department = metadata.Department
		}
		if err := ac.users.Create(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}

	upd := models.UserUpdate{PasswordHash: &passwordHash}
	if existing.Name == "" {
		upd.Name = &name
	}
	return ac.users.Update(ctx, existing.ID, upd)
}

// Login handler. Blocks while a signup OTP is pending for the email,
// otherwise delegates authentication to the identity provider.
func (ac *AuthController) Login(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	// Parse request body
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email format",
		})
	}
	req.Email = email

	// A pending OTP means signup never completed; no authentication
	// attempt is made against the provider
	pending, err := ac.otps.HasPending(ctx, req.Email)
	if err != nil {
		ac.logger.Error().Err(err).Msg("failed to check pending OTP")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to process login",
		})
	}
	if pending {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Complete OTP verification before logging in",
		})
	}

	result, err := ac.identity.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, models.Response{
				Status:  http.StatusUnauthorized,
				Message: "Invalid credentials",
			})
		}
		var provErr *models.IdentityProviderError
		if errors.As(err, &provErr) {
			return c.JSON(provErr.Status, models.Response{
				Status:  provErr.Status,
				Message: provErr.Message,
			})
		}
		ac.logger.Error().Err(err).Msg("identity provider login failed")
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Failed to process login",
		})
	}

	// Every authenticated principal must resolve to exactly one profile
	user, err := ac.users.GetByEmail(ctx, req.Email)
	if err != nil {
		ac.logger.Error().Err(err).Str("email", req.Email).Msg("authenticated user has no local profile")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to resolve user profile",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Login successful",
		Data: models.AuthData{
			User:         user,
			AccessToken:  result.Session.AccessToken,
			RefreshToken: result.Session.RefreshToken,
			TokenType:    result.Session.TokenType,
			ExpiresIn:    result.Session.ExpiresIn,
		},
	})
}

// ResendOTP handler. Issues an additional code for the email; previously
// sent unexpired codes remain valid.
func (ac *AuthController) ResendOTP(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.ResendOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email format",
		})
	}

	code, err := utils.GenerateOTP()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate verification code",
		})
	}

	expiresAt := time.Now().Add(utils.OTPValidity)
	if err := ac.otps.Create(ctx, email, code, expiresAt); err != nil {
		ac.logger.Error().Err(err).Msg("failed to store OTP")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to process request",
		})
	}

	if err := ac.mailer.SendOTPEmail(email, code, expiresAt); err != nil {
		ac.logger.Error().Err(err).Str("email", email).Msg("failed to send OTP email")
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Failed to send verification email, please try again",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "OTP sent to your email",
	})
}
