// utils/file_utils.go
package utils

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

const maxAttachmentSize = 10 * 1024 * 1024 // 10MB

var allowedAttachmentExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".svg":  true,
	".pdf":  true,
	".txt":  true,
	".md":   true,
	".csv":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
	".zip":  true,
}

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// ValidateAttachment validates file size and type before saving
func ValidateAttachment(filename string, size int64) error {
	if size > maxAttachmentSize {
		return errors.New("file too large")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedAttachmentExts[ext] {
		return errors.New("invalid file type")
	}

	return nil
}

// IsImageFile reports whether the filename looks like a raster image we
// can thumbnail
func IsImageFile(filename string) bool {
	return imageExts[strings.ToLower(filepath.Ext(filename))]
}

// SaveUploadedFile writes a multipart upload under uploads/<subdir> and
// returns the stored relative path
func SaveUploadedFile(file *multipart.FileHeader, subdir string) (string, error) {
	uploadDir := filepath.Join("uploads", subdir)
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return "", err
	}

	// Unique filename, keep the original name for readability
	filename := fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(file.Filename))
	filePath := filepath.Join(uploadDir, filename)

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(filePath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		return "", err
	}

	return filePath, nil
}

// GenerateThumbnail produces a 300px-wide thumbnail next to the original
// under uploads/thumbnails and returns its relative path
func GenerateThumbnail(srcPath string) (string, error) {
	img, err := imaging.Open(srcPath)
	if err != nil {
		return "", err
	}

	thumb := imaging.Resize(img, 300, 0, imaging.Lanczos)

	thumbDir := filepath.Join("uploads", "thumbnails")
	if err := os.MkdirAll(thumbDir, 0755); err != nil {
		return "", err
	}

	thumbPath := filepath.Join(thumbDir, filepath.Base(srcPath))
	if err := imaging.Save(thumb, thumbPath); err != nil {
		return "", err
	}

	return thumbPath, nil
}

// RemoveStoredFile deletes a stored upload, ignoring missing files
func RemoveStoredFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to remove stored file %s: %v", path, err)
	}
}
