// controllers/attachment_controller.go
package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/workmate-hq/workmate_backend/middleware"
	"github.com/workmate-hq/workmate_backend/models"
	"github.com/workmate-hq/workmate_backend/utils"
)

// AttachmentController serves task file attachments
type AttachmentController struct {
	DB     *pgxpool.Pool
	logger zerolog.Logger
}

func NewAttachmentController(db *pgxpool.Pool, logger zerolog.Logger) *AttachmentController {
	return &AttachmentController{
		DB:     db,
		logger: logger.With().Str("component", "attachments").Logger(),
	}
}

// UploadAttachment stores a multipart file against a task. Image uploads
// also get a thumbnail.
func (ac *AttachmentController) UploadAttachment(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	taskID := c.Param("taskId")

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Missing file",
		})
	}

	if err := utils.ValidateAttachment(file.Filename, file.Size); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	ok, err := commentTaskAccess(ctx, ac.DB, taskID, user.ID)
	if err != nil || !ok {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Not a member of this organization",
		})
	}

	filePath, err := utils.SaveUploadedFile(file, "attachments")
	if err != nil {
		ac.logger.Error().Err(err).Msg("failed to save attachment")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to save file",
		})
	}

	thumbPath := ""
	if utils.IsImageFile(file.Filename) {
		if tp, err := utils.GenerateThumbnail(filePath); err == nil {
			thumbPath = tp
		} else {
			ac.logger.Warn().Err(err).Str("file", filePath).Msg("thumbnail generation failed")
		}
	}

	attachment := models.Attachment{
		ID:          uuid.NewString(),
		TaskID:      taskID,
		UploaderID:  user.ID,
		FileName:    file.Filename,
		FilePath:    filePath,
		ThumbPath:   thumbPath,
		ContentType: file.Header.Get("Content-Type"),
		SizeBytes:   file.Size,
		CreatedAt:   time.Now(),
	}

	_, err = ac.DB.Exec(ctx,
		`INSERT INTO attachments (id, task_id, uploader_id, file_name, file_path, thumb_path, content_type, size_bytes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		attachment.ID, attachment.TaskID, attachment.UploaderID, attachment.FileName,
		attachment.FilePath, attachment.ThumbPath, attachment.ContentType,
		attachment.SizeBytes, attachment.CreatedAt)
	if err != nil {
		utils.RemoveStoredFile(filePath)
		utils.RemoveStoredFile(thumbPath)
		ac.logger.Error().Err(err).Msg("failed to record attachment")
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to save attachment",
		})
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Attachment uploaded",
		Data:    attachment,
	})
}

// ListAttachments lists a task's attachments
func (ac *AttachmentController) ListAttachments(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	taskID := c.Param("taskId")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ok, err := commentTaskAccess(ctx, ac.DB, taskID, user.ID)
	if err != nil || !ok {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Not a member of this organization",
		})
	}

	rows, err := ac.DB.Query(ctx,
		`SELECT id, task_id, uploader_id, file_name, file_path, thumb_path, content_type, size_bytes, created_at
		 FROM attachments WHERE task_id = $1 ORDER BY created_at DESC`, taskID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to list attachments",
		})
	}
	defer rows.Close()

	var attachments []models.Attachment
	for rows.Next() {
		var a models.Attachment
		if err := rows.Scan(&a.ID, &a.TaskID, &a.UploaderID, &a.FileName, &a.FilePath,
			&a.ThumbPath, &a.ContentType, &a.SizeBytes, &a.CreatedAt); err != nil {
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to list attachments",
			})
		}
		attachments = append(attachments, a)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Attachments retrieved",
		Data:    attachments,
	})
}

// DeleteAttachment removes an attachment; the uploader or an admin
func (ac *AttachmentController) DeleteAttachment(c echo.Context) error {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Not authenticated",
		})
	}
	attachmentID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var uploaderID, filePath, thumbPath string
	err = ac.DB.QueryRow(ctx,
		`SELECT uploader_id, file_path, thumb_path FROM attachments WHERE id = $1`,
		attachmentID).Scan(&uploaderID, &filePath, &thumbPath)
	if err != nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Attachment not found",
		})
	}

	if uploaderID != user.ID && !user.IsAdmin {
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Only the uploader or an admin can delete an attachment",
		})
	}

	if _, err := ac.DB.Exec(ctx, `DELETE FROM attachments WHERE id = $1`, attachmentID); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to delete attachment",
		})
	}

	// Stored files go best-effort after the row
	utils.RemoveStoredFile(filePath)
	utils.RemoveStoredFile(thumbPath)

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Attachment deleted",
	})
}
