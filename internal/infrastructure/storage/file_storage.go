package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/garyjia/reportdesk/internal/application/port"
	"github.com/garyjia/reportdesk/pkg/utils"
	"go.uber.org/zap"
)

// LocalFileStorage implements port.FileStorage for local filesystem
type LocalFileStorage struct {
	baseDir string
	now     func() time.Time
	logger  *zap.Logger
}

// NewLocalFileStorage creates a new LocalFileStorage rooted at baseDir
func NewLocalFileStorage(baseDir string, logger *zap.Logger) *LocalFileStorage {
	return &LocalFileStorage{
		baseDir: baseDir,
		now:     time.Now,
		logger:  logger,
	}
}

// UploadName returns the stored file name for an upload received at t
func UploadName(t time.Time, originalName string) string {
	name := utils.SanitizeFileName(utils.BaseName(originalName))
	if name == "" {
		name = "upload"
	}
	return fmt.Sprintf("%d-%s", t.UnixMilli(), name)
}

// SaveUpload streams r into the upload directory and returns the stored path
func (s *LocalFileStorage) SaveUpload(ctx context.Context, originalName string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		s.logger.Error("Failed to create upload directory",
			zap.String("path", s.baseDir),
			zap.Error(err))
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	stored := filepath.Join(s.baseDir, UploadName(s.now(), originalName))
	if err := s.validatePath(stored); err != nil {
		return "", err
	}

	f, err := os.OpenFile(stored, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		s.logger.Error("Failed to create upload file", zap.String("path", stored), zap.Error(err))
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(stored)
		s.logger.Error("Failed to write upload", zap.String("path", stored), zap.Error(err))
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	s.logger.Debug("Upload saved",
		zap.String("path", stored),
		zap.Int64("size", size))

	return stored, nil
}

// Read reads a stored file
func (s *LocalFileStorage) Read(ctx context.Context, path string) ([]byte, error) {
	if err := s.validatePath(path); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("Failed to read file",
			zap.String("path", path),
			zap.Error(err))
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return content, nil
}

// Exists checks if a stored file exists
func (s *LocalFileStorage) Exists(ctx context.Context, path string) bool {
	if s.validatePath(path) != nil {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Delete removes a stored file. Deleting a missing file succeeds.
func (s *LocalFileStorage) Delete(ctx context.Context, path string) error {
	if err := s.validatePath(path); err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Error("Failed to delete file",
			zap.String("path", path),
			zap.Error(err))
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// validatePath checks that the path is within baseDir
func (s *LocalFileStorage) validatePath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes upload directory: %s", path)
	}

	return nil
}

var _ port.FileStorage = (*LocalFileStorage)(nil)
