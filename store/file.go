package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

const (
	fileExt  = ".fsm"
	fileMode = 0o600
	dirMode  = 0o750
)

// FileStore keeps one file per key in a directory. Writes are atomic and
// durable: the file is synced and then renamed over the previous version.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a backend rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store requires a directory") //nolint:err113
	}

	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

// path maps a key to a file name that is safe for any key content.
func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, base64.RawURLEncoding.EncodeToString([]byte(key))+fileExt)
}

func (f *FileStore) Put(_ context.Context, key string, value []byte) error {
	return renameio.WriteFile(f.path(key), value, fileMode)
}

func (f *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}

	return data, err
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}

func (f *FileStore) Close() error {
	return nil
}

var _ Backend = (*FileStore)(nil)
