package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	perrors "github.com/matzehuels/cityposter/pkg/errors"
)

// FileStore writes posters into a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir. The directory is created
// on first save.
func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = "posters"
	}
	return &FileStore{dir: dir}
}

// Dir returns the output directory.
func (s *FileStore) Dir() string { return s.dir }

// Save writes data through a temp file and a rename.
func (s *FileStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := perrors.ValidateFilename(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", perrors.OutputWrite(err, "create output directory %s", s.dir)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+name+"-*")
	if err != nil {
		return "", perrors.OutputWrite(err, "create temp file in %s", s.dir)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return "", perrors.OutputWrite(err, "write %s", name)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", perrors.OutputWrite(err, "write %s", name)
	}
	if err := ctx.Err(); err != nil {
		cleanup()
		return "", perrors.OutputWrite(err, "write %s", name)
	}

	path := filepath.Join(s.dir, name)
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return "", perrors.OutputWrite(err, "rename to %s", path)
	}
	return path, nil
}

func (s *FileStore) Load(ctx context.Context, name string) ([]byte, error) {
	if err := perrors.ValidateFilename(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := perrors.ValidateFilename(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
