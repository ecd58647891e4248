package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/arkhipovds/studiodesk/internal/filex"
)

// LocalStore keeps payloads on the local filesystem. Keys are absolute
// file paths.
type LocalStore struct{}

// NewLocalStore constructs a filesystem-backed Store.
func NewLocalStore() *LocalStore {
	return &LocalStore{}
}

func (s *LocalStore) Write(_ context.Context, key string, data []byte) error {
	if err := filex.EnsureDir(filepath.Dir(key)); err != nil {
		return err
	}
	if err := os.WriteFile(key, data, 0o660); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", key, err)
}
