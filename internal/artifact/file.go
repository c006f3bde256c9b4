package artifact

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/heartml/pkg/errors"
)

// FileStore keeps artifacts as plain files below Root, so the layout on disk
// is exactly the key layout (artifacts/model/best_model.gob, ...).
type FileStore struct {
	Root string
}

// NewFileStore returns a store rooted at root. The directory is created on
// the first Put.
func NewFileStore(root string) *FileStore {
	return &FileStore{Root: root}
}

func (s *FileStore) path(key Key) string {
	return filepath.Join(s.Root, filepath.FromSlash(key.Path()))
}

// Put writes data through a temporary file and renames it into place, so a
// reader never sees a partial artifact.
func (s *FileStore) Put(ctx context.Context, key Key, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrapf(err, "artifact %s", key)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+key.Name+".*")
	if err != nil {
		return errors.Wrapf(err, "artifact %s", key)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "artifact %s", key)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "artifact %s", key)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return errors.Wrapf(err, "artifact %s", key)
	}
	return nil
}

// Get reads the artifact at key.
func (s *FileStore) Get(ctx context.Context, key Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(errors.ErrArtifactNotFound, "artifact %s", key)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "artifact %s", key)
	}
	return b, nil
}

// Exists reports whether key has been written.
func (s *FileStore) Exists(ctx context.Context, key Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "artifact %s", key)
	}
	return true, nil
}
