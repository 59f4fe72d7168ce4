package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"CinemaScanner/internal/domain"
	"CinemaScanner/internal/ports"
	"CinemaScanner/internal/reconcile"
)

const summaryTopMovies = 5

// PipelineDeps wires all driven adapters into the scrape pipeline.
type PipelineDeps struct {
	Catalog      ports.CatalogSource
	Orchestrator *Orchestrator
	Snapshots    ports.SnapshotWriter
	Reconciler   *reconcile.Reconciler
	Mirror       ports.MasterMirror
	Publisher    ports.Publisher
	Notifier     ports.Notifier
	Logger       *slog.Logger
	ResetFetched bool
	// RestartCycles clears the fetched set at the start of a run when the
	// previous run of this pipeline reached every location without tripping.
	RestartCycles bool
	// ArtifactNames are the object names used for movies, venues and master uploads.
	ArtifactNames ArtifactNames
}

// ArtifactNames names the uploaded run outputs.
type ArtifactNames struct {
	Movies string
	Venues string
	Master string
}

// RunReport is the outcome of a single pipeline execution. Idle is set when
// no location was attempted; nothing is written then.
type RunReport struct {
	RunID      string
	Attempted  int
	Fetched    int
	Failed     int
	Skipped    int
	Cancelled  int
	Tripped    bool
	Idle       bool
	Movies     int
	Venues     int
	MasterSize int
}

// Pipeline runs one full scrape: crawl, write outputs, reconcile and fan out.
type Pipeline struct {
	catalog      ports.CatalogSource
	orchestrator *Orchestrator
	snapshots    ports.SnapshotWriter
	reconciler   *reconcile.Reconciler
	mirror       ports.MasterMirror
	publisher    ports.Publisher
	notifier     ports.Notifier
	logger       *slog.Logger
	resetFetched bool
	restart      bool
	cycleDone    atomic.Bool
	names        ArtifactNames
	now          func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	names := deps.ArtifactNames
	if names.Movies == "" {
		names.Movies = "movies.json"
	}
	if names.Venues == "" {
		names.Venues = "venues.json"
	}
	if names.Master == "" {
		names.Master = "moviedata.json"
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		catalog:      deps.Catalog,
		orchestrator: deps.Orchestrator,
		snapshots:    deps.Snapshots,
		reconciler:   deps.Reconciler,
		mirror:       deps.Mirror,
		publisher:    deps.Publisher,
		notifier:     deps.Notifier,
		logger:       logger,
		resetFetched: deps.ResetFetched,
		restart:      deps.RestartCycles,
		names:        names,
		now:          time.Now,
	}
}

// Run executes one pass. When the circuit breaker trips, outputs are still
// written and reconciled before the wrapped ErrCircuitOpen is returned. A pass
// that attempts no location leaves every output untouched.
func (p *Pipeline) Run(ctx context.Context) (RunReport, error) {
	report := RunReport{RunID: uuid.NewString()}
	if p.catalog == nil || p.orchestrator == nil || p.snapshots == nil || p.reconciler == nil {
		return report, fmt.Errorf("pipeline is not fully configured")
	}

	log := p.logger.With("run_id", report.RunID)
	orchestrator := *p.orchestrator
	orchestrator.logger = orchestratorLogger(p.orchestrator.logger, report.RunID)

	locations, err := p.catalog.Locations(ctx)
	if err != nil {
		return report, fmt.Errorf("load catalog: %w", err)
	}
	log.Info("run started", "locations", len(locations))

	reset := p.resetFetched || (p.restart && p.cycleDone.Load())
	pass, err := orchestrator.Run(ctx, locations, reset)
	if err != nil {
		return report, fmt.Errorf("fetch locations: %w", err)
	}
	// failed locations stay queued across a restart, so they do not hold one back
	p.cycleDone.Store(!pass.Tripped && pass.Cancelled == 0)
	report.Attempted = pass.Attempted
	report.Fetched = pass.Fetched
	report.Failed = pass.Failed
	report.Skipped = pass.Skipped
	report.Cancelled = pass.Cancelled
	report.Tripped = pass.Tripped
	report.Movies = len(pass.Snapshot.Movies)
	report.Venues = len(pass.Snapshot.Venues)

	if pass.Attempted == 0 {
		report.Idle = true
		log.Info("nothing attempted, keeping previous outputs",
			"skipped", report.Skipped, "cancelled", report.Cancelled)
		return report, nil
	}

	// outputs are written even when the run was cut short
	writeCtx := context.WithoutCancel(ctx)

	if err := p.snapshots.WriteSnapshot(writeCtx, pass.Snapshot); err != nil {
		return report, fmt.Errorf("write snapshot: %w", err)
	}
	log.Info("snapshot written", "movies", report.Movies, "venues", report.Venues)

	master, err := p.reconciler.Reconcile(writeCtx, pass.Snapshot)
	if err != nil {
		return report, fmt.Errorf("reconcile master: %w", err)
	}
	report.MasterSize = len(master)

	if p.mirror != nil {
		if err := p.mirror.Upsert(writeCtx, master); err != nil {
			log.Warn("mirror master dataset", "error", err)
		}
	}

	p.publish(writeCtx, log, pass.Snapshot, master)

	if p.notifier != nil {
		if err := p.notifier.PublishSummary(writeCtx, buildSummary(report, pass.Snapshot)); err != nil {
			log.Warn("send run summary", "error", err)
		}
	}

	log.Info("run finished",
		"fetched", report.Fetched,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"master_size", report.MasterSize,
		"tripped", report.Tripped)

	if report.Tripped {
		return report, fmt.Errorf("run %s stopped after %d failures: %w", report.RunID, report.Failed, domain.ErrCircuitOpen)
	}
	return report, nil
}

func (p *Pipeline) publish(ctx context.Context, log *slog.Logger, snap domain.CoverageSnapshot, master []domain.MasterRecord) {
	if p.publisher == nil {
		return
	}

	day := p.now().UTC().Format("20060102")
	movies := snap.Movies
	if movies == nil {
		movies = []domain.Movie{}
	}
	artifacts := []struct {
		name string
		body any
	}{
		{p.names.Movies, movies},
		{p.names.Venues, snap.VenueIndex()},
		{p.names.Master, master},
	}

	for _, a := range artifacts {
		raw, err := marshalArtifact(a.body)
		if err != nil {
			log.Warn("encode artifact", "name", a.name, "error", err)
			continue
		}
		key := day + "/" + a.name
		if err := p.publisher.Publish(ctx, key, bytes.NewReader(raw)); err != nil {
			log.Warn("publish artifact", "key", key, "error", err)
			continue
		}
		log.Debug("artifact published", "key", key, "bytes", len(raw))
	}
}

func marshalArtifact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func orchestratorLogger(base *slog.Logger, runID string) *slog.Logger {
	if base == nil {
		return nil
	}
	return base.With("run_id", runID)
}

func buildSummary(report RunReport, snap domain.CoverageSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cinema scan %s\n", report.RunID)
	fmt.Fprintf(&b, "Fetched: %d, failed: %d, skipped: %d\n", report.Fetched, report.Failed, report.Skipped)
	fmt.Fprintf(&b, "Movies: %d, venues: %d, master: %d\n", report.Movies, report.Venues, report.MasterSize)
	if report.Tripped {
		b.WriteString("Circuit breaker tripped, run incomplete\n")
	}

	top := snap.Movies
	if len(top) > summaryTopMovies {
		top = top[:summaryTopMovies]
	}
	if len(top) > 0 {
		b.WriteString("\nTop movies by city coverage:\n")
		for _, m := range top {
			fmt.Fprintf(&b, "- %s (%d)\n", m.Title, m.CityCount)
		}
	}
	return b.String()
}
