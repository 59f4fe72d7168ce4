package ports

import (
	"context"
	"io"
	"time"

	"CinemaScanner/internal/domain"
)

// CatalogSource yields the static list of locations to crawl.
type CatalogSource interface {
	Locations(ctx context.Context) ([]domain.Location, error)
}

// LocationFetcher retrieves the raw payload for a single location.
type LocationFetcher interface {
	Fetch(ctx context.Context, slug string) ([]byte, error)
}

// Extractor turns a raw location payload into movies and venues. It never
// fails: unrecognised payloads yield an empty result.
type Extractor interface {
	Extract(raw []byte) domain.LocationResult
}

// StateStore persists the fetched/failed resume sets.
type StateStore interface {
	Load(ctx context.Context) (domain.ResumeState, error)
	Save(ctx context.Context, state domain.ResumeState) error
}

// SnapshotWriter stores the per-run movie and venue outputs.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, snapshot domain.CoverageSnapshot) error
}

// MasterStore reads and rewrites the master dataset wholesale.
type MasterStore interface {
	Load(ctx context.Context) ([]domain.MasterRecord, error)
	Save(ctx context.Context, records []domain.MasterRecord) error
}

// MasterMirror receives a copy of the merged master dataset (e.g. Postgres).
type MasterMirror interface {
	Upsert(ctx context.Context, records []domain.MasterRecord) error
}

// Publisher uploads run artifacts to remote storage.
type Publisher interface {
	Publish(ctx context.Context, key string, body io.Reader) error
}

// Notifier streams run summaries to Telegram or other channels.
type Notifier interface {
	PublishSummary(ctx context.Context, summary string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
