package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	procurementapp "github.com/wms/backend/internal/application/procurement"
)

// Ensure LocalDocumentStore implements DocumentStore
var _ procurementapp.DocumentStore = (*LocalDocumentStore)(nil)

// LocalDocumentStore stores documents on the local filesystem.
// Intended for development and tests where no object store is available.
type LocalDocumentStore struct {
	baseDir string
}

// NewLocalDocumentStore creates a store rooted at baseDir, creating the
// directory if needed.
func NewLocalDocumentStore(baseDir string) (*LocalDocumentStore, error) {
	if baseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalDocumentStore{baseDir: baseDir}, nil
}

// Put stores a document under the given key
func (s *LocalDocumentStore) Put(ctx context.Context, key, contentType string, body []byte) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create document directory: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// Get retrieves a document by key
func (s *LocalDocumentStore) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return data, nil
}

// resolve maps a storage key to a filesystem path, rejecting keys that
// would escape the base directory.
func (s *LocalDocumentStore) resolve(key string) (string, error) {
	if key == "" {
		return "", errors.New("storage key is required")
	}
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid storage key: %q", key)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}
