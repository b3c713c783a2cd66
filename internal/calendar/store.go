package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists the full calendar as one logical document. Save replaces the
// whole snapshot; incremental patches are deliberately not part of the contract
// so a crash mid-write can never corrupt previously durable state.
type Store interface {
	Load(ctx context.Context) (Calendar, error)
	Save(ctx context.Context, cal Calendar) error
}

// FileStore keeps the calendar in a single JSON file. A missing file is not an
// error; it reads as an empty calendar.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	if path == "" {
		panic("calendar: file store path required")
	}
	return &FileStore{path: path}
}

// Load reads the calendar snapshot. Absent backing file degrades to an empty
// calendar with no error.
func (s *FileStore) Load(ctx context.Context) (Calendar, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Calendar{}, nil
		}
		return Calendar{}, fmt.Errorf("calendar: read %s: %w", s.path, err)
	}

	var cal Calendar
	if err := json.Unmarshal(data, &cal); err != nil {
		return Calendar{}, fmt.Errorf("calendar: decode %s: %w", s.path, err)
	}
	if cal == nil {
		cal = Calendar{}
	}
	return cal, nil
}

// Save writes the snapshot to a temp file in the same directory and renames it
// into place, so readers never observe a partially written calendar.
func (s *FileStore) Save(ctx context.Context, cal Calendar) error {
	data, err := json.MarshalIndent(cal, "", "  ")
	if err != nil {
		return fmt.Errorf("calendar: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("calendar: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("calendar: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("calendar: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("calendar: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("calendar: rename into %s: %w", s.path, err)
	}
	return nil
}
