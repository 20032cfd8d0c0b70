// controllers/organization_controller.go
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

// OrganizationController serves the tenant CRUD and membership endpoints
type OrganizationController struct {
	DB     *pgxpool.Pool
	hub    *ws.Hub
	logger zerolog.Logger
}

func NewOrganizationController(db *pgxpool.Pool, hub *ws.Hub, logger zerolog.Logger) *OrganizationController {
	return &OrganizationController{
		DB:     db,
		hub:    hub,
		logger: logger.With().Str("component", "organizations").Logger(),
	}
}

// isOrgMember reports whether userID belongs to orgID
func isOrgMember(ctx context.Context, db *pgxpool.Pool, orgID, userID string) (bool, error) {
	var member bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM org_members WHERE org_id = $1 AND user_id = $2)`,
		orgID, userID).Scan(&member)
	return member, err
}

// isOrgOwner reports whether userID owns orgID
func isOrgOwner(ctx context.Context, db *pgxpool.Pool, orgID, userID string) (bool, error) {
	var owner bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM org_members WHERE org_id = $1 AND user_id = $2 AND role = $3)`,
		orgID, userID, models.OrgRoleOwner).Scan(&owner)
	return owner, err
}

// CreateOrganization creates a tenant with the caller as owner
func (oc *OrganizationController) CreateOrganization(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}

	var req models.CreateOrganizationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Organization name is required",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	org := models.Organization{
		ID:          uuid.NewString(),
		Name:        utils.SanitizeInput(req.Name),
		Description: utils.SanitizeInput(req.Description),
		OwnerID:     user.ID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	// Org row and owner membership land together or not at all
	tx, err := oc.DB.Begin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create organization",
		})
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO organizations (id, name, description, owner_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		org.ID, org.Name, org.Description, org.OwnerID, org.CreatedAt, org.UpdatedAt)
	if err == nil {
		_, err = tx.Exec(ctx,
			`INSERT INTO org_members (org_id, user_id, role, added_at) VALUES ($1, $2, $3, NOW())`,
			org.ID, user.ID, models.OrgRoleOwner)
	}
	if err == nil {
		err = tx.Commit(ctx)
	}
	if err != nil {
		oc.logger.Error().Err(err).Msg("failed to create organization")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create organization",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Organization created",
		Data:    org,
	})
}

// ListOrganizations returns the organizations the caller belongs to
func (oc *OrganizationController) ListOrganizations(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	rows, err := oc.DB.Query(ctx,
		`SELECT o.id, o.name, o.description, o.owner_id, o.created_at, o.updated_at
		 FROM organizations o
		 JOIN org_members m ON m.org_id = o.id
		 WHERE m.user_id = $1
		 ORDER BY o.created_at DESC`, user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to list organizations",
		})
	}
	defer rows.Close()

	var orgs []models.Organization
	for rows.Next() {
		var o models.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Description, &o.OwnerID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to list organizations",
			})
		}
		orgs = append(orgs, o)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Organizations retrieved",
		Data:    orgs,
	})
}

// GetOrganization returns one organization the caller belongs to
func (oc *OrganizationController) GetOrganization(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	orgID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	member, err := isOrgMember(ctx, oc.DB, orgID, user.ID)
	if err != nil || !member {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Not a member of this organization",
		})
	}

	var o models.Organization
	err = oc.DB.QueryRow(ctx,
		`SELECT id, name, description, owner_id, created_at, updated_at
		 FROM organizations WHERE id = $1`, orgID).
		Scan(&o.ID, &o.Name, &o.Description, &o.OwnerID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Organization not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to get organization",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Organization retrieved",
		Data:    o,
	})
}

// UpdateOrganization updates name/description; owners only
func (oc *OrganizationController) UpdateOrganization(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	orgID := c.Param("id")

	var req models.UpdateOrganizationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	owner, err := isOrgOwner(ctx, oc.DB, orgID, user.ID)
	if err != nil || !owner {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only organization owners can update it",
		})
	}

	var o models.Organization
	err = oc.DB.QueryRow(ctx,
		`UPDATE organizations SET
			name = COALESCE(NULLIF($2, ''), name),
			description = COALESCE(NULLIF($3, ''), description),
			updated_at = NOW()
		 WHERE id = $1
		 RETURNING id, name, description, owner_id, created_at, updated_at`,
		orgID, utils.SanitizeInput(req.Name), utils.SanitizeInput(req.Description)).
		Scan(&o.ID, &o.Name, &o.Description, &o.OwnerID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update organization",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Organization updated",
		Data:    o,
	})
}

// DeleteOrganization removes the tenant and everything under it; owners only
func (oc *OrganizationController) DeleteOrganization(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	orgID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	owner, err := isOrgOwner(ctx, oc.DB, orgID, user.ID)
	if err != nil || !owner {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only organization owners can delete it",
		})
	}

	if _, err := oc.DB.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, orgID); err != nil {
		oc.logger.Error().Err(err).Str("orgId", orgID).Msg("failed to delete organization")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to delete organization",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Organization deleted",
	})
}

// ListMembers returns the members of an organization the caller belongs to
func (oc *OrganizationController) ListMembers(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	orgID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	member, err := isOrgMember(ctx, oc.DB, orgID, user.ID)
	if err != nil || !member {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Not a member of this organization",
		})
	}

	rows, err := oc.DB.Query(ctx,
		`SELECT u.id, u.email, u.name, m.role, m.added_at
		 FROM org_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.org_id = $1
		 ORDER BY m.added_at`, orgID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to list members",
		})
	}
	defer rows.Close()

	var members []models.OrgMemberInfo
	for rows.Next() {
		var m models.OrgMemberInfo
		if err := rows.Scan(&m.UserID, &m.Email, &m.Name, &m.Role, &m.AddedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to list members",
			})
		}
		members = append(members, m)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Members retrieved",
		Data:    members,
	})
}

// AddMember adds a user (by email) to the organization; owners only
func (oc *OrganizationController) AddMember(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	orgID := c.Param("id")

	var req models.AddMemberRequest
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

	role := req.Role
	if role != models.OrgRoleOwner {
		role = models.OrgRoleMember
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	owner, err := isOrgOwner(ctx, oc.DB, orgID, user.ID)
	if err != nil || !owner {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only organization owners can add members",
		})
	}

	var newMemberID string
	var orgName string
	err = oc.DB.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&newMemberID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "No user with that email",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to add member",
		})
	}

	_, err = oc.DB.Exec(ctx,
		`INSERT INTO org_members (org_id, user_id, role, added_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (org_id, user_id) DO NOTHING`,
		orgID, newMemberID, role)
	if err != nil {
		oc.logger.Error().Err(err).Msg("failed to add member")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to add member",
		})
	}

	oc.DB.QueryRow(ctx, `SELECT name FROM organizations WHERE id = $1`, orgID).Scan(&orgName)

	// Tell the new member
	utils.NotifyUser(ctx, oc.DB, oc.hub, newMemberID,
		"Added to organization",
		"You were added to "+orgName,
		models.NotificationTypeOrgInvite,
		map[string]string{"orgId": orgID})

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Member added",
	})
}

// RemoveMember removes a member from the organization; owners only. The
// owning member cannot be removed.
func (oc *OrganizationController) RemoveMember(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	orgID := c.Param("id")
	memberID := c.Param("userId")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	owner, err := isOrgOwner(ctx, oc.DB, orgID, user.ID)
	if err != nil || !owner {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only organization owners can remove members",
		})
	}

	var ownerID string
	if err := oc.DB.QueryRow(ctx, `SELECT owner_id FROM organizations WHERE id = $1`, orgID).Scan(&ownerID); err == nil && ownerID == memberID {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "The organization owner cannot be removed",
		})
	}

	if _, err := oc.DB.Exec(ctx,
		`DELETE FROM org_members WHERE org_id = $1 AND user_id = $2`, orgID, memberID); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to remove member",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Member removed",
	})
}
