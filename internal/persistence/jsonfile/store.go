// Package jsonfile persists snapshots as a single JSON document on disk.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/example/facility-scheduler/internal/domain"
	"github.com/example/facility-scheduler/internal/persistence"
)

// Store reads and writes a snapshot file. Writes go to a temporary file in
// the same directory and are renamed into place.
type Store struct {
	path string
}

// New returns a store backed by path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// SaveSnapshot writes snapshot to disk.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot persistence.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snapshot.Schedules == nil {
		snapshot.Schedules = map[string][]domain.Schedule{}
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonfile: encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("jsonfile: create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("jsonfile: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("jsonfile: write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("jsonfile: sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("jsonfile: close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("jsonfile: replace snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the snapshot file. A missing file yields
// persistence.ErrNotFound.
func (s *Store) LoadSnapshot(ctx context.Context) (persistence.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return persistence.Snapshot{}, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.Snapshot{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("jsonfile: read snapshot: %w", err)
	}

	var snapshot persistence.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return persistence.Snapshot{}, fmt.Errorf("jsonfile: decode snapshot: %w", err)
	}
	if snapshot.Schedules == nil {
		snapshot.Schedules = map[string][]domain.Schedule{}
	}
	return snapshot, nil
}
