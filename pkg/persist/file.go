package persist

import (
	"context"
	"os"
	"path/filepath"
)

// FileStore keeps the snapshot in a single local file. The default
// backend for single-server deployments.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed snapshot store. The parent
// directory is created if it doesn't exist.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &FileStore{path: path}, nil
}

// Save writes the snapshot atomically via a temp file and rename, so a
// crash mid-write never leaves a truncated snapshot behind.
func (f *FileStore) Save(ctx context.Context, data []byte) error {
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// Load reads the snapshot file. A missing file is not an error.
func (f *FileStore) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Close does nothing for the file store.
func (f *FileStore) Close() error {
	return nil
}

var _ SnapshotStore = (*FileStore)(nil)
