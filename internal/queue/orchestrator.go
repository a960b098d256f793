package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/clippings/clippings-api/internal/domain"
	"github.com/clippings/clippings-api/internal/store"
)

// Orchestrator is the top-level run loop of the queue engine. It sequences
// the parallel fetch phase and the sequential processing phase, guards
// against re-entrant execution, and triggers a post-completion sync.
//
// The running guard is owned by the orchestrator instance, so independent
// orchestrators (as used in tests) never interfere with each other.
type Orchestrator struct {
	items   store.ItemStore
	fetch   *FetchPhase
	process *ProcessPhase
	sync    SyncTrigger
	logger  *slog.Logger
	running atomic.Bool
}

// NewOrchestrator creates a new Orchestrator. A nil sync trigger disables
// post-completion synchronization.
func NewOrchestrator(
	items store.ItemStore,
	fetch *FetchPhase,
	process *ProcessPhase,
	sync SyncTrigger,
	logger *slog.Logger,
) *Orchestrator {
	if sync == nil {
		sync = NoopSyncTrigger{}
	}

	return &Orchestrator{
		items:   items,
		fetch:   fetch,
		process: process,
		sync:    sync,
		logger:  logger.With("component", "queue_orchestrator"),
	}
}

// Run executes one full pass over the queue: fetch all items awaiting
// capture, then process all captured items oldest-first, then trigger the
// sync collaborator. Invoking Run while a pass is already in progress
// returns immediately without error, so a timer and a manual refresh can
// both trigger it safely.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		o.logger.Info("already processing, skipping")
		return nil
	}
	// Guaranteed release: a failed pass must never block future runs.
	defer o.running.Store(false)

	o.logger.Info("starting queue pass")

	awaiting, err := o.items.GetItemsByStatus(ctx, 0, domain.ItemStatusAwaitingCapture)
	if err != nil {
		return fmt.Errorf("failed to load items awaiting capture: %w", err)
	}
	o.fetch.Run(ctx, awaiting)

	captured, err := o.items.GetItemsByStatus(ctx, 0,
		domain.ItemStatusCaptured, domain.ItemStatusAwaitingProcessing)
	if err != nil {
		return fmt.Errorf("failed to load items awaiting processing: %w", err)
	}
	o.process.Run(ctx, captured)

	if err := o.sync.TriggerIfEnabled(ctx); err != nil {
		// Sync failures never fail the run.
		o.logger.Error("post-completion sync failed", "error", fmt.Errorf("%w: %v", ErrSyncFailure, err))
	}

	o.logger.Info("queue pass finished",
		"fetched_count", len(awaiting),
		"processed_count", len(captured))

	return nil
}
