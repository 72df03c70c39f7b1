package filestorage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"barter_backend/internal/config"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

// MaxImageBytes caps a single uploaded image.
const MaxImageBytes = 10 << 20

var allowedImageExtensions = map[string]string{
	".jpg":  ".jpg",
	".jpeg": ".jpg",
	".png":  ".png",
	".gif":  ".gif",
	".webp": ".webp",
}

// FileStorageService stores uploaded files on local disk.
type FileStorageService struct {
	storagePath string
	logger      *zap.Logger
}

// NewFileStorageService creates the service rooted at IMAGE_STORAGE_PATH.
func NewFileStorageService(cfg *config.Config, logger *zap.Logger) (*FileStorageService, error) {
	return newFileStorageService(cfg.ImageStoragePath, logger)
}

func newFileStorageService(storagePath string, logger *zap.Logger) (*FileStorageService, error) {
	if storagePath == "" {
		return nil, fmt.Errorf("storage path cannot be empty")
	}
	if err := os.MkdirAll(storagePath, os.ModePerm); err != nil {
		logger.Error("Failed to create storage path directory", zap.String("path", storagePath), zap.Error(err))
		return nil, fmt.Errorf("failed to create storage path %s: %w", storagePath, err)
	}
	return &FileStorageService{storagePath: storagePath, logger: logger.Named("FileStorage")}, nil
}

// imageExtension resolves the stored extension from the file name, falling
// back to the declared content type.
func imageExtension(fileHeader *multipart.FileHeader) (string, error) {
	if ext, ok := allowedImageExtensions[strings.ToLower(filepath.Ext(fileHeader.Filename))]; ok {
		return ext, nil
	}
	contentType := fileHeader.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "image/jpeg"):
		return ".jpg", nil
	case strings.HasPrefix(contentType, "image/png"):
		return ".png", nil
	case strings.HasPrefix(contentType, "image/gif"):
		return ".gif", nil
	case strings.HasPrefix(contentType, "image/webp"):
		return ".webp", nil
	}
	return "", fmt.Errorf("unsupported file type: %q", fileHeader.Filename)
}

// SaveImage stores an uploaded image under subDir as "<slug of baseName>-<short id><ext>"
// and returns its slash-separated path relative to the storage root.
func (s *FileStorageService) SaveImage(fileHeader *multipart.FileHeader, subDir, baseName string) (string, error) {
	if fileHeader == nil {
		return "", fmt.Errorf("fileHeader cannot be nil")
	}
	if fileHeader.Size > MaxImageBytes {
		return "", fmt.Errorf("file %q exceeds %d bytes", fileHeader.Filename, MaxImageBytes)
	}
	extension, err := imageExtension(fileHeader)
	if err != nil {
		return "", err
	}

	cleanSubDir := filepath.Clean(subDir)
	if filepath.IsAbs(cleanSubDir) || strings.HasPrefix(cleanSubDir, "..") {
		s.logger.Error("Invalid subDir, attempts to navigate up", zap.String("subDir", subDir))
		return "", fmt.Errorf("invalid subDir path")
	}

	name := slug.Make(baseName)
	if name == "" {
		name = "image"
	}
	filename := fmt.Sprintf("%s-%s%s", name, uuid.NewString()[:8], extension)

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	destinationDir := filepath.Join(s.storagePath, cleanSubDir)
	if err := os.MkdirAll(destinationDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", destinationDir, err)
	}
	destinationPath := filepath.Join(destinationDir, filename)

	dst, err := os.Create(destinationPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", destinationPath, err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, src); err != nil {
		os.Remove(destinationPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	s.logger.Debug("File saved", zap.String("path", destinationPath))
	return filepath.ToSlash(filepath.Join(cleanSubDir, filename)), nil
}

// DeleteFile deletes a file given its path relative to the storage root.
// A missing file is not an error.
func (s *FileStorageService) DeleteFile(relativePath string) error {
	if relativePath == "" {
		return fmt.Errorf("relative path cannot be empty")
	}
	cleanRelativePath := filepath.Clean(relativePath)
	if filepath.IsAbs(cleanRelativePath) || strings.Contains(cleanRelativePath, "..") {
		s.logger.Warn("Attempt to delete file with path traversal", zap.String("relativePath", relativePath))
		return fmt.Errorf("invalid file path for deletion")
	}

	fullPath := filepath.Join(s.storagePath, cleanRelativePath)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete file", zap.String("path", fullPath), zap.Error(err))
		return fmt.Errorf("failed to delete file %s: %w", fullPath, err)
	}
	return nil
}
