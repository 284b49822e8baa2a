package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"churchconnect/internal/config"
)

// ErrNotFound is returned by a Backend for a key that was never written.
var ErrNotFound = errors.New("store: key not found")

// Backend persists one opaque value per key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// FileBackend keeps each key in <dir>/<key>.json.
type FileBackend struct {
	dir string
}

// NewFileBackend creates dir (0700) if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, errors.New("store: directory is empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileBackend{dir: dir}, nil
}

func (f *FileBackend) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileBackend) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", key, err)
	}
	return data, nil
}

func (f *FileBackend) Put(_ context.Context, key string, value []byte) error {
	if err := config.WriteFileAtomic(f.path(key), value, 0o600); err != nil {
		return fmt.Errorf("store: write %s: %w", key, err)
	}
	return nil
}

func (f *FileBackend) Close() error { return nil }
