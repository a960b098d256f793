package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/clippings/clippings-api/internal/domain"
	"github.com/clippings/clippings-api/internal/store"
)

// RecoveryScanner reconciles items left "in flight" by an unclean shutdown.
// It runs exactly once per process start, before the orchestrator's first
// pass: items stuck in the transient processing status are reset to
// awaiting_processing so the processing phase picks them up again, and job
// items stuck in_progress are reset to pending.
//
// This is a reconciliation strategy, not a transactional log: re-running a
// partially completed item is safe because every processing stage checks
// existing output before recomputing.
type RecoveryScanner struct {
	items  store.ItemStore
	jobs   store.JobStore
	logger *slog.Logger
}

// NewRecoveryScanner creates a new RecoveryScanner.
func NewRecoveryScanner(items store.ItemStore, jobs store.JobStore, logger *slog.Logger) *RecoveryScanner {
	return &RecoveryScanner{
		items:  items,
		jobs:   jobs,
		logger: logger.With("component", "recovery_scanner"),
	}
}

// Recover resets stuck items and job items to resumable states.
func (s *RecoveryScanner) Recover(ctx context.Context) error {
	stuck, err := s.items.GetItemsByStatus(ctx, 0, domain.ItemStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to scan for stuck items: %w", err)
	}

	if len(stuck) > 0 {
		ids := make([]uuid.UUID, len(stuck))
		for i, item := range stuck {
			ids[i] = item.ID
		}

		awaiting := domain.ItemStatusAwaitingProcessing
		if err := s.items.BulkUpdateItems(ctx, ids, store.ItemUpdate{Status: &awaiting}); err != nil {
			return fmt.Errorf("failed to reset stuck items: %w", err)
		}

		s.logger.Info("reset stuck items after unclean shutdown", "item_count", len(stuck))
	}

	resetCount, err := s.jobs.ResetInProgressJobItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset stuck job items: %w", err)
	}
	if resetCount > 0 {
		s.logger.Info("reset stuck job items after unclean shutdown", "job_item_count", resetCount)
	}

	return nil
}
