package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"CinemaScanner/internal/domain"
	"CinemaScanner/internal/ports"
)

// SnapshotFiles writes the per-run movie and venue outputs.
type SnapshotFiles struct {
	MoviesPath string
	VenuesPath string
}

var _ ports.SnapshotWriter = (*SnapshotFiles)(nil)

// NewSnapshotFiles places both outputs under dir.
func NewSnapshotFiles(dir, moviesName, venuesName string) *SnapshotFiles {
	return &SnapshotFiles{
		MoviesPath: filepath.Join(dir, moviesName),
		VenuesPath: filepath.Join(dir, venuesName),
	}
}

// WriteSnapshot writes venues keyed by code and the coverage-sorted movie list.
func (s *SnapshotFiles) WriteSnapshot(ctx context.Context, snapshot domain.CoverageSnapshot) error {
	if err := writeJSON(s.VenuesPath, snapshot.VenueIndex()); err != nil {
		return fmt.Errorf("write venues: %w", err)
	}

	movies := snapshot.Movies
	if movies == nil {
		movies = []domain.Movie{}
	}
	if err := writeJSON(s.MoviesPath, movies); err != nil {
		return fmt.Errorf("write movies: %w", err)
	}
	return nil
}
