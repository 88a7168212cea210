package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/simple-files/pkg/simplefiles"
)

const backendName = "fs"

// Backend is a filesystem implementation of the simplefiles.BlobStore interface
type Backend struct {
	baseDir string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Base directory for storing files
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	// Validate and create base directory if it doesn't exist
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	baseDir, err := filepath.Abs(config.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{baseDir: baseDir}, nil
}

// path maps a key to a file below baseDir, refusing keys that escape it
func (b *Backend) path(objectKey string) (string, error) {
	filePath := filepath.Join(b.baseDir, filepath.FromSlash(objectKey))
	if filePath == b.baseDir || !strings.HasPrefix(filePath, b.baseDir+string(filepath.Separator)) {
		return "", &simplefiles.StorageError{Backend: backendName, Key: objectKey, Op: "resolve", Err: errors.New("invalid object key")}
	}
	return filePath, nil
}

// Upload writes content to a temporary file and renames it into place, so
// concurrent writers of the same key leave exactly one complete file behind.
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	filePath, err := b.path(objectKey)
	if err != nil {
		return err
	}

	// Create directory structure if it doesn't exist
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &simplefiles.StorageError{Backend: backendName, Key: objectKey, Op: "mkdir", Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return &simplefiles.StorageError{Backend: backendName, Key: objectKey, Op: "create", Err: err}
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &simplefiles.StorageError{Backend: backendName, Key: objectKey, Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &simplefiles.StorageError{Backend: backendName, Key: objectKey, Op: "close", Err: err}
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		os.Remove(tmpName)
		return &simplefiles.StorageError{Backend: backendName, Key: objectKey, Op: "rename", Err: err}
	}

	return nil
}

// Download opens the file stored under objectKey
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	filePath, err := b.path(objectKey)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return nil, simplefiles.ErrBlobNotFound
	} else if err != nil {
		return nil, &simplefiles.StorageError{Backend: backendName, Key: objectKey, Op: "open", Err: err}
	}

	return file, nil
}

// Exists reports whether a regular file is stored under objectKey
func (b *Backend) Exists(ctx context.Context, objectKey string) (bool, error) {
	filePath, err := b.path(objectKey)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, &simplefiles.StorageError{Backend: backendName, Key: objectKey, Op: "stat", Err: err}
	}
	return info.Mode().IsRegular(), nil
}

// Delete deletes content from the filesystem
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	filePath, err := b.path(objectKey)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return simplefiles.ErrBlobNotFound
		}
		return &simplefiles.StorageError{Backend: backendName, Key: objectKey, Op: "delete", Err: err}
	}

	// Clean up empty directories
	b.cleanupEmptyDirectories(filepath.Dir(filePath))

	return nil
}

// cleanupEmptyDirectories recursively removes empty directories up to baseDir
func (b *Backend) cleanupEmptyDirectories(dir string) {
	// Don't remove the base directory
	if dir == b.baseDir || !strings.HasPrefix(dir, b.baseDir) {
		return
	}

	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			b.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}
