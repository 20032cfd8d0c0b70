// controllers/user_controller.go
package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/workmate-hq/workmate_backend/middleware"
	"github.com/workmate-hq/workmate_backend/models"
	"github.com/workmate-hq/workmate_backend/repositories"
	"github.com/workmate-hq/workmate_backend/utils"
)

// UserController serves profile endpoints
type UserController struct {
	DB     *pgxpool.Pool
	users  *repositories.UserRepository
	logger zerolog.Logger
}

func NewUserController(db *pgxpool.Pool, users *repositories.UserRepository, logger zerolog.Logger) *UserController {
	return &UserController{
		DB:     db,
		users:  users,
		logger: logger.With().Str("component", "users").Logger(),
	}
}

// Me returns the caller's own profile with its organization memberships
func (uc *UserController) Me(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	rows, err := uc.DB.Query(ctx,
		`SELECT org_id FROM org_members WHERE user_id = $1`, user.ID)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var orgID string
			if rows.Scan(&orgID) == nil {
				user.OrgIDs = append(user.OrgIDs, orgID)
			}
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Profile retrieved",
		Data:    user,
	})
}

// GetUser returns another member's profile by id
func (uc *UserController) GetUser(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	user, err := uc.users.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "User not found",
			})
		}
		uc.logger.Error().Err(err).Str("userId", c.Param("id")).Msg("failed to load user")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load user",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "User retrieved",
		Data:    user,
	})
}

// UpdateMe updates the caller's display name and department
func (uc *UserController) UpdateMe(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	upd := models.UserUpdate{}
	if name := utils.SanitizeInput(req.Name); name != "" {
		upd.Name = &name
	}
	if dept := utils.SanitizeInput(req.Department); dept != "" {
		upd.Department = &dept
	}

	updated, err := uc.users.Update(ctx, user.ID, upd)
	if err != nil {
		uc.logger.Error().Err(err).Str("userId", user.ID).Msg("failed to update profile")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update profile",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Profile updated",
		Data:    updated,
	})
}

// ListUsers returns all profiles; admin only
func (uc *UserController) ListUsers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	users, err := uc.users.List(ctx)
	if err != nil {
		uc.logger.Error().Err(err).Msg("failed to list users")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to list users",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Users retrieved",
		Data:    users,
	})
}
