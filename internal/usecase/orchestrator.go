package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"CinemaScanner/internal/aggregate"
	"CinemaScanner/internal/domain"
	"CinemaScanner/internal/ports"
)

const (
	defaultConcurrency      = 50
	defaultBreakerThreshold = 10
)

// OrchestratorConfig tunes the worker pool and the circuit breaker.
type OrchestratorConfig struct {
	Concurrency      int
	BreakerThreshold int
	JitterMin        time.Duration
	JitterMax        time.Duration
}

// OrchestratorDeps wires the driven adapters used per location.
type OrchestratorDeps struct {
	Fetcher   ports.LocationFetcher
	Extractor ports.Extractor
	State     ports.StateStore
	Logger    *slog.Logger
}

// FetchReport summarises one pass over the worklist.
type FetchReport struct {
	Worklist  int
	Attempted int
	Fetched   int
	Failed    int
	Skipped   int
	Cancelled int
	Tripped   bool
	Snapshot  domain.CoverageSnapshot
}

// Orchestrator drives fetch + extract for every pending location with
// bounded concurrency, persisting resume state after each resolution.
type Orchestrator struct {
	fetcher   ports.LocationFetcher
	extractor ports.Extractor
	state     ports.StateStore
	logger    *slog.Logger
	cfg       OrchestratorConfig
	sleep     func(ctx context.Context, d time.Duration)
}

// NewOrchestrator applies defaults for non-positive limits.
func NewOrchestrator(cfg OrchestratorConfig, deps OrchestratorDeps) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = defaultBreakerThreshold
	}
	if cfg.JitterMax < cfg.JitterMin {
		cfg.JitterMax = cfg.JitterMin
	}
	return &Orchestrator{
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		state:     deps.State,
		logger:    deps.Logger,
		cfg:       cfg,
		sleep:     sleepContext,
	}
}

// passState is everything the workers share; mu guards all of it.
type passState struct {
	mu      sync.Mutex
	resume  domain.ResumeState
	agg     *aggregate.Aggregator
	streak  int
	tripped bool
	report  FetchReport
}

func (p *passState) isTripped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tripped
}

// Run performs one pass over failed ∪ catalog. Per-location failures are
// recorded, never returned; the error covers only loading resume state.
func (o *Orchestrator) Run(ctx context.Context, catalog []domain.Location, resetFetched bool) (FetchReport, error) {
	if o.fetcher == nil || o.extractor == nil || o.state == nil {
		return FetchReport{}, fmt.Errorf("orchestrator is not fully configured")
	}

	resume, err := o.state.Load(ctx)
	if err != nil {
		return FetchReport{}, fmt.Errorf("load resume state: %w", err)
	}
	if resetFetched {
		resume.Fetched = domain.NewSet()
		if err := o.state.Save(ctx, resume); err != nil {
			return FetchReport{}, fmt.Errorf("reset fetched set: %w", err)
		}
		o.info("fetched set reset")
	}

	worklist := buildWorklist(resume.Failed, catalog)
	pass := &passState{resume: resume, agg: aggregate.New()}
	pass.report.Worklist = len(worklist)

	o.info("pass started",
		"worklist", len(worklist),
		"already_fetched", len(resume.Fetched),
		"retrying_failed", len(resume.Failed),
		"concurrency", o.cfg.Concurrency)

	var g errgroup.Group
	g.SetLimit(o.cfg.Concurrency)

	dispatched := 0
	for _, slug := range worklist {
		if pass.isTripped() || ctx.Err() != nil {
			break
		}
		dispatched++
		slug := slug
		g.Go(func() error {
			o.process(ctx, pass, slug)
			return nil
		})
	}
	_ = g.Wait()

	pass.mu.Lock()
	defer pass.mu.Unlock()

	report := pass.report
	report.Cancelled += len(worklist) - dispatched
	report.Tripped = pass.tripped
	report.Snapshot = pass.agg.Snapshot()

	o.info("pass finished",
		"attempted", report.Attempted,
		"fetched", report.Fetched,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"cancelled", report.Cancelled,
		"tripped", report.Tripped)
	return report, nil
}

func (o *Orchestrator) process(ctx context.Context, pass *passState, slug string) {
	pass.mu.Lock()
	switch {
	case pass.tripped, ctx.Err() != nil:
		pass.report.Cancelled++
		pass.mu.Unlock()
		return
	case pass.resume.Fetched.Has(slug):
		pass.report.Skipped++
		pass.mu.Unlock()
		o.debug("skipping location, already fetched", "location", slug)
		return
	}
	pass.mu.Unlock()

	payload, err := o.fetcher.Fetch(ctx, slug)
	if err != nil && ctx.Err() != nil {
		pass.mu.Lock()
		pass.report.Cancelled++
		pass.mu.Unlock()
		return
	}

	if err != nil {
		o.recordFailure(ctx, pass, slug, err)
	} else {
		o.recordSuccess(ctx, pass, slug, o.safeExtract(slug, payload))
	}

	o.sleep(ctx, o.jitter())
}

func (o *Orchestrator) recordFailure(ctx context.Context, pass *passState, slug string, cause error) {
	pass.mu.Lock()
	defer pass.mu.Unlock()

	pass.streak++
	pass.report.Attempted++
	pass.report.Failed++
	pass.resume.Failed.Add(slug)
	o.persist(ctx, pass.resume)

	o.warn("location failed", "location", slug, "error", cause, "error_streak", pass.streak)

	if pass.streak >= o.cfg.BreakerThreshold && !pass.tripped {
		pass.tripped = true
		o.logError("circuit breaker tripped, stopping dispatch", "consecutive_errors", pass.streak)
	}
}

func (o *Orchestrator) recordSuccess(ctx context.Context, pass *passState, slug string, res domain.LocationResult) {
	pass.mu.Lock()
	defer pass.mu.Unlock()

	pass.streak = 0
	pass.report.Attempted++
	pass.report.Fetched++
	res.Slug = slug
	pass.agg.Add(res)
	pass.resume.Fetched.Add(slug)
	pass.resume.Failed.Remove(slug)
	o.persist(ctx, pass.resume)

	o.info("location fetched", "location", slug, "movies", len(res.Movies), "venues", len(res.Venues))
}

// persist runs under the pass lock; a cancelled run still records what resolved.
func (o *Orchestrator) persist(ctx context.Context, resume domain.ResumeState) {
	if err := o.state.Save(context.WithoutCancel(ctx), resume); err != nil {
		o.warn("persist resume state", "error", err)
	}
}

func (o *Orchestrator) safeExtract(slug string, payload []byte) (res domain.LocationResult) {
	defer func() {
		if r := recover(); r != nil {
			o.warn("extraction panicked, treating as empty", "location", slug, "panic", r)
			res = domain.LocationResult{}
		}
	}()
	return o.extractor.Extract(payload)
}

func (o *Orchestrator) jitter() time.Duration {
	span := o.cfg.JitterMax - o.cfg.JitterMin
	if span <= 0 {
		return o.cfg.JitterMin
	}
	return o.cfg.JitterMin + time.Duration(rand.Int63n(int64(span)))
}

// buildWorklist puts previously failed slugs first, then the catalog, without repeats.
func buildWorklist(failed domain.Set, catalog []domain.Location) []string {
	out := make([]string, 0, len(failed)+len(catalog))
	seen := make(map[string]struct{}, len(failed)+len(catalog))
	add := func(slug string) {
		if _, ok := seen[slug]; ok {
			return
		}
		seen[slug] = struct{}{}
		out = append(out, slug)
	}
	for _, slug := range failed.Sorted() {
		add(slug)
	}
	for _, loc := range catalog {
		add(loc.Slug)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (o *Orchestrator) debug(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Debug(msg, args...)
	}
}

func (o *Orchestrator) info(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Info(msg, args...)
	}
}

func (o *Orchestrator) warn(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Warn(msg, args...)
	}
}

func (o *Orchestrator) logError(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Error(msg, args...)
	}
}
