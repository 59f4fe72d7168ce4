package storage

import (
	"context"
	"fmt"

	"CinemaScanner/internal/domain"
	"CinemaScanner/internal/ports"
)

// FileMasterStore keeps the master dataset as one JSON array.
type FileMasterStore struct {
	path string
}

var _ ports.MasterStore = (*FileMasterStore)(nil)

// NewFileMasterStore wires the master file path.
func NewFileMasterStore(path string) *FileMasterStore {
	return &FileMasterStore{path: path}
}

// Path exposes the backing file for artifact publishing.
func (s *FileMasterStore) Path() string {
	return s.path
}

// Load returns the stored records; a missing file yields an empty dataset.
func (s *FileMasterStore) Load(ctx context.Context) ([]domain.MasterRecord, error) {
	var records []domain.MasterRecord
	if _, err := readJSON(s.path, &records); err != nil {
		return nil, fmt.Errorf("load master: %w", err)
	}
	return records, nil
}

// Save overwrites the file with records.
func (s *FileMasterStore) Save(ctx context.Context, records []domain.MasterRecord) error {
	if records == nil {
		records = []domain.MasterRecord{}
	}
	return writeJSON(s.path, records)
}
