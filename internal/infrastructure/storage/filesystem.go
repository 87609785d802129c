package storage

import (
	"context"
	"document-review/internal/domain/repositories"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one file per key under a root directory. Writes go to a
// temporary file first and are renamed into place, so a failed or oversized
// upload never replaces existing content.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.root, key), nil
}

func (s *FileStore) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	fullPath, err := s.path(key)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(s.root, key+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("failed to save file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return 0, fmt.Errorf("failed to save file: %w", err)
	}

	return n, nil
}

func (s *FileStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

func (s *FileStore) Delete(ctx context.Context, key string) error {
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

var _ repositories.BlobStore = (*FileStore)(nil)
