package storage

import (
	"context"
	"fmt"
	"log/slog"

	"CinemaScanner/internal/domain"
	"CinemaScanner/internal/ports"
)

// FileStateStore keeps the resume sets as two sorted JSON arrays.
type FileStateStore struct {
	fetchedPath string
	failedPath  string
	logger      *slog.Logger
}

var _ ports.StateStore = (*FileStateStore)(nil)

// NewFileStateStore wires the two state file paths.
func NewFileStateStore(fetchedPath, failedPath string, log *slog.Logger) *FileStateStore {
	return &FileStateStore{fetchedPath: fetchedPath, failedPath: failedPath, logger: log}
}

// Load reads both sets. A corrupted file is reset to an empty set with a
// warning instead of failing the run.
func (s *FileStateStore) Load(ctx context.Context) (domain.ResumeState, error) {
	state := domain.ResumeState{
		Fetched: s.loadSet(s.fetchedPath),
		Failed:  s.loadSet(s.failedPath),
	}
	return normalizeState(state), nil
}

// Save rewrites both files wholesale.
func (s *FileStateStore) Save(ctx context.Context, state domain.ResumeState) error {
	if err := writeJSON(s.fetchedPath, state.Fetched.Sorted()); err != nil {
		return fmt.Errorf("save fetched set: %w", err)
	}
	if err := writeJSON(s.failedPath, state.Failed.Sorted()); err != nil {
		return fmt.Errorf("save failed set: %w", err)
	}
	return nil
}

func (s *FileStateStore) loadSet(path string) domain.Set {
	var slugs []string
	if _, err := readJSON(path, &slugs); err != nil {
		if s.logger != nil {
			s.logger.Warn("state file corrupted, resetting",
				"path", path, "error", fmt.Errorf("%w: %v", domain.ErrStateCorrupt, err))
		}
		return domain.NewSet()
	}
	return domain.NewSet(slugs...)
}

// normalizeState keeps a slug only in fetched when it appears in both sets.
func normalizeState(state domain.ResumeState) domain.ResumeState {
	if state.Fetched == nil {
		state.Fetched = domain.NewSet()
	}
	if state.Failed == nil {
		state.Failed = domain.NewSet()
	}
	for slug := range state.Fetched {
		state.Failed.Remove(slug)
	}
	return state
}
