// Package storage keeps uploaded attachment content on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/benefits-portal/internal/application/port"
)

// LocalBlobStore implements port.BlobStore for the local filesystem.
// Blobs live under baseDir/<first two id chars>/<id>.
type LocalBlobStore struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalBlobStore creates a new LocalBlobStore
func NewLocalBlobStore(baseDir string, logger *zap.Logger) *LocalBlobStore {
	return &LocalBlobStore{
		baseDir: baseDir,
		logger:  logger,
	}
}

// Put stores content under a fresh opaque id
func (s *LocalBlobStore) Put(ctx context.Context, content []byte) (string, error) {
	id := uuid.NewString()
	fullPath, err := s.pathFor(id)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create blob directory",
			zap.String("path", filepath.Dir(fullPath)),
			zap.Error(err))
		return "", fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write blob",
			zap.String("path", fullPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to write blob: %w", err)
	}

	s.logger.Debug("Blob saved",
		zap.String("id", id),
		zap.Int("size", len(content)))

	return id, nil
}

// Get reads the content stored under id
func (s *LocalBlobStore) Get(ctx context.Context, id string) ([]byte, error) {
	fullPath, err := s.pathFor(id)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		s.logger.Error("Failed to read blob",
			zap.String("path", fullPath),
			zap.Error(err))
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return content, nil
}

// Delete removes a blob. Deleting a missing blob succeeds.
func (s *LocalBlobStore) Delete(ctx context.Context, id string) error {
	fullPath, err := s.pathFor(id)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Error("Failed to delete blob",
			zap.String("path", fullPath),
			zap.Error(err))
		return fmt.Errorf("failed to delete blob: %w", err)
	}

	s.logger.Debug("Blob deleted", zap.String("id", id))
	return nil
}

// pathFor maps an id to its file, refusing anything that is not a UUID
func (s *LocalBlobStore) pathFor(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("invalid blob id %q: %w", id, port.ErrNotFound)
	}
	fullPath := filepath.Join(s.baseDir, id[:2], id)
	if err := s.validatePath(fullPath); err != nil {
		return "", err
	}
	return fullPath, nil
}

// validatePath checks that the path is safe and within baseDir
func (s *LocalBlobStore) validatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}
	return nil
}

// Verify interface compliance
var _ port.BlobStore = (*LocalBlobStore)(nil)
