package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"CinemaScanner/internal/config"
	"CinemaScanner/internal/extract"
	"CinemaScanner/internal/identity"
	"CinemaScanner/internal/infrastructure/fetcher"
	"CinemaScanner/internal/infrastructure/publish"
	"CinemaScanner/internal/infrastructure/scheduler"
	"CinemaScanner/internal/infrastructure/storage"
	"CinemaScanner/internal/infrastructure/telegram"
	"CinemaScanner/internal/logging"
	"CinemaScanner/internal/ports"
	"CinemaScanner/internal/reconcile"
	"CinemaScanner/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	closers  []io.Closer
}

// New builds the application. Optional sinks (Postgres, S3, Telegram, Redis)
// are only wired when their settings are present.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	registry := identity.NewRegistry(cfg.Scanner.BaseURL)
	if cfg.Scanner.UserAgent != "" {
		registry.Register(identity.NewStatic(cfg.Scanner.BaseURL, cfg.Scanner.UserAgent))
	}
	ids, err := registry.Resolve(cfg.Scanner.Identity)
	if err != nil {
		return nil, err
	}

	locFetcher, err := fetcher.New(fetcher.Options{
		BaseURL:  cfg.Scanner.BaseURL,
		HomePath: cfg.Scanner.HomePath,
		DataPath: cfg.Scanner.DataPath,
		Timeout:  cfg.Scanner.RequestTimeout,
		Limiter:  newLimiter(cfg.Scanner.RequestsPerSecond),
	}, ids)
	if err != nil {
		return nil, fmt.Errorf("build fetcher: %w", err)
	}

	state, err := a.stateStore(ctx, baseLogger)
	if err != nil {
		a.Close()
		return nil, err
	}

	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorConfig{
		Concurrency:      cfg.Scanner.Concurrency,
		BreakerThreshold: cfg.Scanner.BreakerThreshold,
		JitterMin:        cfg.Scanner.JitterMin,
		JitterMax:        cfg.Scanner.JitterMax,
	}, usecase.OrchestratorDeps{
		Fetcher:   locFetcher,
		Extractor: extract.NewExtractor(cfg.Master.PosterCDN),
		State:     state,
		Logger:    baseLogger.With("component", "orchestrator"),
	})

	masterStore := storage.NewFileMasterStore(cfg.Master.Path)
	merger := reconcile.NewMerger(cfg.Master.LegacyPosterPrefix, cfg.Master.CurrentPosterPrefix)

	var mirror ports.MasterMirror
	if cfg.Database.DSN != "" {
		repo, err := a.postgresMirror(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		mirror = repo
	}

	var publisher ports.Publisher
	if cfg.Publish.Bucket != "" {
		publisher, err = publish.NewS3Publisher(ctx, cfg.Publish.Bucket, cfg.Publish.Prefix, cfg.Publish.Region)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("build s3 publisher: %w", err)
		}
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Catalog:       storage.NewFileCatalog(cfg.Catalog.Path),
		Orchestrator:  orchestrator,
		Snapshots:     storage.NewSnapshotFiles(cfg.Output.Dir, cfg.Output.Movies, cfg.Output.Venues),
		Reconciler:    reconcile.NewReconciler(masterStore, merger, baseLogger.With("component", "reconciler")),
		Mirror:        mirror,
		Publisher:     publisher,
		Notifier:      notifier,
		Logger:        baseLogger.With("component", "pipeline"),
		ResetFetched:  cfg.State.ResetFetched,
		RestartCycles: cfg.Scheduler.Interval > 0,
		ArtifactNames: usecase.ArtifactNames{
			Movies: cfg.Output.Movies,
			Venues: cfg.Output.Venues,
			Master: filepath.Base(cfg.Master.Path),
		},
	})

	baseLogger.Info("application ready",
		"identity", ids.Name(),
		"state_backend", cfg.State.Backend,
		"mirror", mirror != nil,
		"publisher", publisher != nil,
		"notifier", notifier != nil,
		"interval", cfg.Scheduler.Interval)
	return a, nil
}

func (a *Application) stateStore(ctx context.Context, log *slog.Logger) (ports.StateStore, error) {
	if a.cfg.State.Backend != config.StateBackendRedis {
		return storage.NewFileStateStore(a.cfg.State.FetchedPath, a.cfg.State.FailedPath, log.With("component", "state")), nil
	}

	client, err := storage.NewRedisClient(ctx, a.cfg.State.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.closers = append(a.closers, client)
	return storage.NewRedisStateStore(client, a.cfg.State.RedisPrefix), nil
}

func (a *Application) postgresMirror(ctx context.Context) (*storage.PostgresRepository, error) {
	db, err := storage.OpenPostgres(ctx, a.cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, db)

	repo := storage.NewPostgresRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, nil
}

// Run performs a single pipeline execution, or keeps repeating it on the
// configured interval until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return nil
	}

	if a.cfg.Scheduler.Interval <= 0 {
		_, err := a.pipeline.Run(ctx)
		return err
	}

	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval, a.cfg.Scheduler.Location())
	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return sched.Stop(stopCtx)
}

// Close releases database and cache connections.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), int(math.Max(1, math.Ceil(rps))))
}
