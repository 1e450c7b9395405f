package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pauljones0/epic-free-games-bot/internal/models"
)

// File keeps the state in a single JSON file.
type File struct {
	path string
}

// NewFile stores the state at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Load returns the empty state when the file is missing or unreadable.
func (f *File) Load(_ context.Context) models.TrackerState {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("State file not found, starting with empty state", "path", f.path)
		} else {
			slog.Warn("Failed to read state file, starting with empty state", "path", f.path, "error", err)
		}
		return models.EmptyState()
	}

	state, err := decodeState(data)
	if err != nil {
		slog.Warn("Corrupt state file, starting with empty state", "path", f.path, "error", err)
		return models.EmptyState()
	}
	slog.Info("Loaded state", "path", f.path, "current", len(state.Current), "upcoming", len(state.Upcoming), "last_run", state.LastRunDate)
	return state
}

// Save writes to a temporary file in the same directory and renames it over
// the previous state, so readers see either the old or the new file.
func (f *File) Save(_ context.Context, state models.TrackerState) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary state file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temporary state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temporary state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temporary state file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	committed = true
	return nil
}

// Close is a no-op.
func (f *File) Close() error { return nil }
