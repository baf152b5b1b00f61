// Package storage stages uploaded spreadsheets on local disk until their
// session is deleted.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"gradelens/internal/errors"
	"gradelens/ports"
)

// StorageConfig holds configuration for file storage
type StorageConfig struct {
	BasePath    string // Base directory for staged uploads
	MaxFileSize int64  // Maximum file size in bytes
}

// DefaultStorageConfig returns sensible defaults
func DefaultStorageConfig() *StorageConfig {
	return &StorageConfig{
		BasePath:    "uploads",
		MaxFileSize: 32 * 1024 * 1024,
	}
}

// LocalFileStorage implements ports.UploadStore using the local filesystem
type LocalFileStorage struct {
	config *StorageConfig
}

var _ ports.UploadStore = (*LocalFileStorage)(nil)

// NewLocalFileStorage creates a new local file storage instance
func NewLocalFileStorage(config *StorageConfig) *LocalFileStorage {
	if config == nil {
		config = DefaultStorageConfig()
	}
	return &LocalFileStorage{config: config}
}

// NewLocalFileStorageWithPath creates a new local file storage with a simple path
func NewLocalFileStorageWithPath(basePath string, maxFileSize int64) *LocalFileStorage {
	return NewLocalFileStorage(&StorageConfig{BasePath: basePath, MaxFileSize: maxFileSize})
}

// Store saves data under a unique name derived from name and returns its path.
// The extension is kept so the format can still be inferred from the path.
func (s *LocalFileStorage) Store(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.config.MaxFileSize > 0 && int64(len(data)) > s.config.MaxFileSize {
		return "", errors.InvalidInput(fmt.Sprintf("file %s is %d bytes, limit is %d", name, len(data), s.config.MaxFileSize))
	}

	if err := os.MkdirAll(s.config.BasePath, 0755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}

	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := sanitize(strings.TrimSuffix(base, ext))
	timestamp := time.Now().Format("20060102_150405")
	uniqueName := fmt.Sprintf("%s_%s_%s%s", stem, timestamp, uuid.New().String()[:8], strings.ToLower(ext))

	filePath := filepath.Join(s.config.BasePath, uniqueName)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("failed to write %s: %w", filePath, err)
	}
	return filePath, nil
}

// Delete removes a staged file. A missing file is not an error.
func (s *LocalFileStorage) Delete(ctx context.Context, filePath string) error {
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists checks if a file exists in storage
func (s *LocalFileStorage) Exists(ctx context.Context, filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}
	return true, nil
}

func sanitize(stem string) string {
	stem = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, stem)
	if stem == "" {
		return "upload"
	}
	return stem
}
