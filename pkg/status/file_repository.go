package status

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileRepository implements Repository using a JSON file.
type FileRepository struct {
	path string
}

// NewFileRepository creates a FileRepository storing status at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Load retrieves the last saved status from disk.
// Returns an empty status and nil error if no status file exists.
func (r *FileRepository) Load(ctx context.Context) (Status, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Status{}, nil
		}
		return Status{}, err
	}

	var s Status
	if err := json.Unmarshal(data, &s); err != nil {
		return Status{}, fmt.Errorf("parse status file %s: %w", r.path, err)
	}
	return s, nil
}

// Save persists the status atomically: it writes a temp file in the same
// directory, then renames it over the target.
func (r *FileRepository) Save(ctx context.Context, s Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), r.path)
}

// Path returns the full path to the status file.
func (r *FileRepository) Path() string {
	return r.path
}

var _ Repository = (*FileRepository)(nil)
