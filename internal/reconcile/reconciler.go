package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"CinemaScanner/internal/domain"
	"CinemaScanner/internal/ports"
)

// Reconciler loads the master dataset, merges a snapshot into it and writes it back.
type Reconciler struct {
	store  ports.MasterStore
	merger *Merger
	logger *slog.Logger
}

// NewReconciler wires the master store with a merger.
func NewReconciler(store ports.MasterStore, merger *Merger, log *slog.Logger) *Reconciler {
	if merger == nil {
		merger = NewMerger("", "")
	}
	return &Reconciler{store: store, merger: merger, logger: log}
}

// Reconcile replaces the stored master set with the merge of it and snapshot.
func (r *Reconciler) Reconcile(ctx context.Context, snapshot domain.CoverageSnapshot) ([]domain.MasterRecord, error) {
	if r.store == nil {
		return nil, fmt.Errorf("master store is not configured")
	}

	master, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load master: %w", err)
	}

	merged := r.merger.Merge(master, snapshot.Movies)
	if err := r.store.Save(ctx, merged); err != nil {
		return nil, fmt.Errorf("save master: %w", err)
	}

	if r.logger != nil {
		r.logger.Info("master synced", "previous", len(master), "incoming", len(snapshot.Movies), "total", len(merged))
	}
	return merged, nil
}
