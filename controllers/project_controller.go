// controllers/project_controller.go
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
)

// ProjectController serves project CRUD within an organization
type ProjectController struct {
	DB     *pgxpool.Pool
	logger zerolog.Logger
}

func NewProjectController(db *pgxpool.Pool, logger zerolog.Logger) *ProjectController {
	return &ProjectController{
		DB:     db,
		logger: logger.With().Str("component", "projects").Logger(),
	}
}

// projectOrg returns the org a project belongs to
func projectOrg(ctx context.Context, db *pgxpool.Pool, projectID string) (string, error) {
	var orgID string
	err := db.QueryRow(ctx, `SELECT org_id FROM projects WHERE id = $1`, projectID).Scan(&orgID)
	return orgID, err
}

// CreateProject creates a project in an organization the caller belongs to
func (pc *ProjectController) CreateProject(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	orgID := c.Param("orgId")

	var req models.CreateProjectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Project name is required",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	member, err := isOrgMember(ctx, pc.DB, orgID, user.ID)
	if err != nil || !member {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Not a member of this organization",
		})
	}

	project := models.Project{
		ID:          uuid.NewString(),
		OrgID:       orgID,
		Name:        utils.SanitizeInput(req.Name),
		Description: utils.SanitizeInput(req.Description),
		Status:      models.ProjectStatusActive,
		CreatedBy:   user.ID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	_, err = pc.DB.Exec(ctx,
		`INSERT INTO projects (id, org_id, name, description, status, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		project.ID, project.OrgID, project.Name, project.Description,
		project.Status, project.CreatedBy, project.CreatedAt, project.UpdatedAt)
	if err != nil {
		pc.logger.Error().Err(err).Msg("failed to create project")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create project",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Project created",
		Data:    project,
	})
}

// ListProjects lists the projects of an organization the caller belongs to
func (pc *ProjectController) ListProjects(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	orgID := c.Param("orgId")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	member, err := isOrgMember(ctx, pc.DB, orgID, user.ID)
	if err != nil || !member {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Not a member of this organization",
		})
	}

	query := `SELECT id, org_id, name, description, status, created_by, created_at, updated_at
		 FROM projects WHERE org_id = $1`
	args := []interface{}{orgID}
	if status := c.QueryParam("status"); status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := pc.DB.Query(ctx, query, args...)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to list projects",
		})
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.OrgID, &p.Name, &p.Description, &p.Status,
			&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to list projects",
			})
		}
		projects = append(projects, p)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Projects retrieved",
		Data:    projects,
	})
}

// GetProject returns one project if the caller belongs to its organization
func (pc *ProjectController) GetProject(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	projectID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var p models.Project
	err = pc.DB.QueryRow(ctx,
		`SELECT id, org_id, name, description, status, created_by, created_at, updated_at
		 FROM projects WHERE id = $1`, projectID).
		Scan(&p.ID, &p.OrgID, &p.Name, &p.Description, &p.Status,
			&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Project not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to get project",
		})
	}

	member, err := isOrgMember(ctx, pc.DB, p.OrgID, user.ID)
	if err != nil || !member {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Not a member of this organization",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Project retrieved",
		Data:    p,
	})
}

// UpdateProject updates name/description/status of a project
func (pc *ProjectController) UpdateProject(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	projectID := c.Param("id")

	var req models.UpdateProjectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	if req.Status != "" && req.Status != models.ProjectStatusActive && req.Status != models.ProjectStatusArchived {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid project status",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	orgID, err := projectOrg(ctx, pc.DB, projectID)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Project not found",
		})
	}

	member, err := isOrgMember(ctx, pc.DB, orgID, user.ID)
	if err != nil || !member {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Not a member of this organization",
		})
	}

	var p models.Project
	err = pc.DB.QueryRow(ctx,
		`UPDATE projects SET
			name = COALESCE(NULLIF($2, ''), name),
			description = COALESCE(NULLIF($3, ''), description),
			status = COALESCE(NULLIF($4, ''), status),
			updated_at = NOW()
		 WHERE id = $1
		 RETURNING id, org_id, name, description, status, created_by, created_at, updated_at`,
		projectID, utils.SanitizeInput(req.Name), utils.SanitizeInput(req.Description), req.Status).
		Scan(&p.ID, &p.OrgID, &p.Name, &p.Description, &p.Status,
			&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		pc.logger.Error().Err(err).Msg("failed to update project")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update project",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Project updated",
		Data:    p,
	})
}

// DeleteProject deletes a project; org owners or the project creator
func (pc *ProjectController) DeleteProject(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	projectID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var orgID, createdBy string
	err = pc.DB.QueryRow(ctx,
		`SELECT org_id, created_by FROM projects WHERE id = $1`, projectID).Scan(&orgID, &createdBy)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Project not found",
		})
	}

	owner, _ := isOrgOwner(ctx, pc.DB, orgID, user.ID)
	if !owner && createdBy != user.ID {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only the project creator or an organization owner can delete it",
		})
	}

	if _, err := pc.DB.Exec(ctx, `DELETE FROM projects WHERE id = $1`, projectID); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to delete project",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Project deleted",
	})
}
