package storage

import (
	"context"
	"fmt"
	"strings"

	"CinemaScanner/internal/domain"
	"CinemaScanner/internal/ports"
)

// FileCatalog reads the static location catalog from a JSON array.
type FileCatalog struct {
	path string
}

var _ ports.CatalogSource = (*FileCatalog)(nil)

// NewFileCatalog wires the catalog path.
func NewFileCatalog(path string) *FileCatalog {
	return &FileCatalog{path: path}
}

// Locations returns the catalog in file order with blanks and repeats dropped.
func (c *FileCatalog) Locations(ctx context.Context) ([]domain.Location, error) {
	var raw []domain.Location
	found, err := readJSON(c.path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("load catalog: %s is missing or empty", c.path)
	}

	out := make([]domain.Location, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, loc := range raw {
		slug := strings.TrimSpace(loc.Slug)
		if slug == "" {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		out = append(out, domain.Location{Slug: slug})
	}
	return out, nil
}
