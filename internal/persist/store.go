package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a key has no stored record.
var ErrNotFound = errors.New("persist: record not found")

// Store holds encoded records by key.
type Store interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Close() error
}

// SaveCompound encodes and stores the record.
func SaveCompound(ctx context.Context, store Store, key string, c Compound) error {
	if store == nil {
		return errors.New("persist: nil store")
	}
	data, err := Marshal(c)
	if err != nil {
		return err
	}
	return store.Save(ctx, key, data)
}

// LoadCompound loads and decodes the record stored under key.
func LoadCompound(ctx context.Context, store Store, key string) (Compound, error) {
	if store == nil {
		return nil, errors.New("persist: nil store")
	}
	data, err := store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// FileStore keeps one file per key inside a directory.
type FileStore struct {
	dir string
}

// NewFileStore constructs a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("persist: empty store directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persist: create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("persist: invalid key %q", key)
	}
	return filepath.Join(s.dir, key+".msgpack"), nil
}

// Save writes the record through a temporary file so readers never observe a
// partial write.
func (s *FileStore) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("persist: write temp record: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("persist: replace record: %w", err)
	}
	return nil
}

// Load reads the record stored under key.
func (s *FileStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("persist: read record: %w", err)
	}
	return data, nil
}

// Close satisfies Store.
func (s *FileStore) Close() error {
	return nil
}
