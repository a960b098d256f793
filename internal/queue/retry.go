package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clippings/clippings-api/internal/domain"
	"github.com/clippings/clippings-api/internal/events"
	"github.com/clippings/clippings-api/internal/store"
)

// RetryCoordinator is the single component permitted to increment an item's
// retry count or transition it to the terminal error state. Phase executors
// hand it failed items together with the status the item should re-enter on
// its next attempt.
type RetryCoordinator struct {
	items     store.ItemStore
	jobs      store.JobStore
	publisher events.Publisher
	policy    BackoffPolicy
	logger    *slog.Logger
}

// NewRetryCoordinator creates a new RetryCoordinator.
func NewRetryCoordinator(
	items store.ItemStore,
	jobs store.JobStore,
	publisher events.Publisher,
	policy BackoffPolicy,
	logger *slog.Logger,
) *RetryCoordinator {
	return &RetryCoordinator{
		items:     items,
		jobs:      jobs,
		publisher: publisher,
		policy:    policy,
		logger:    logger.With("component", "retry_coordinator"),
	}
}

// HandleErrorWithRetry is the single decision point for a failed attempt.
// It compares the item's retry count to the policy budget and dispatches to
// either a scheduled retry or a terminal failure. The returned boolean
// reports whether the failure was terminal so callers can branch.
func (c *RetryCoordinator) HandleErrorWithRetry(
	ctx context.Context,
	item *domain.Item,
	cause error,
	nextStatus domain.ItemStatus,
) (bool, error) {
	if item.RetryCount >= c.policy.MaxRetries {
		if err := c.HandleFinalFailure(ctx, item, cause); err != nil {
			return true, err
		}
		return true, nil
	}

	if err := c.HandleRetry(ctx, item, cause, nextStatus); err != nil {
		return false, err
	}
	return false, nil
}

// HandleRetry persists the incremented retry count, resets the item to
// nextStatus so it re-enters its phase on the next pass, mirrors the update
// onto the job item, then waits the computed backoff delay before returning
// control. The wait observes context cancellation.
func (c *RetryCoordinator) HandleRetry(
	ctx context.Context,
	item *domain.Item,
	cause error,
	nextStatus domain.ItemStatus,
) error {
	attempt := item.RetryCount
	newCount := attempt + 1
	message := fmt.Sprintf("Retry %d/%d: %s", newCount, c.policy.MaxRetries, rootCause(cause))

	logger := c.logger.With("item_id", item.ID, "retry_count", newCount)
	logger.Warn("scheduling retry",
		"next_status", nextStatus,
		"error", cause)

	update := store.ItemUpdate{
		Status:       &nextStatus,
		RetryCount:   &newCount,
		ErrorMessage: &message,
	}
	if err := c.items.UpdateItem(ctx, item.ID, update); err != nil {
		logger.Error("failed to persist retry state", "error", err)
		return &StorageFailure{Operation: "update", Entity: "item", Err: err}
	}

	jobItemStatus := domain.JobItemStatusPending
	jobUpdate := store.JobItemUpdate{
		Status:       &jobItemStatus,
		RetryCount:   &newCount,
		ErrorMessage: &message,
	}
	if err := c.jobs.UpdateJobItemByItemID(ctx, item.ID, jobUpdate); err != nil {
		// The item itself is already rescheduled; job bookkeeping catches up
		// on the next pass.
		logger.Error("failed to mirror retry onto job item", "error", err)
	}

	// Keep the in-memory item consistent with what was persisted.
	item.RetryCount = newCount
	item.ErrorMessage = message
	item.Status = nextStatus

	delay := c.policy.Backoff(attempt)
	logger.Info("backing off before retry", "delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		logger.Warn("backoff wait cancelled", "ctx_err", ctx.Err())
		return ctx.Err()
	}

	return nil
}

// HandleFinalFailure marks the item and its job item as terminally failed,
// recomputes the parent job status, and publishes a processing_failed event.
func (c *RetryCoordinator) HandleFinalFailure(
	ctx context.Context,
	item *domain.Item,
	cause error,
) error {
	message := fmt.Sprintf("Failed after %d attempts: %s", c.policy.MaxRetries+1, rootCause(cause))

	logger := c.logger.With("item_id", item.ID)
	logger.Error("item failed terminally",
		"attempts", c.policy.MaxRetries+1,
		"error", cause)

	errStatus := domain.ItemStatusError
	update := store.ItemUpdate{
		Status:       &errStatus,
		ErrorMessage: &message,
	}
	if err := c.items.UpdateItem(ctx, item.ID, update); err != nil {
		logger.Error("failed to persist terminal failure", "error", err)
		return &StorageFailure{Operation: "update", Entity: "item", Err: err}
	}

	item.Status = errStatus
	item.ErrorMessage = message

	jobItemStatus := domain.JobItemStatusError
	jobUpdate := store.JobItemUpdate{
		Status:       &jobItemStatus,
		ErrorMessage: &message,
	}
	if err := c.jobs.UpdateJobItemByItemID(ctx, item.ID, jobUpdate); err != nil {
		logger.Error("failed to mirror terminal failure onto job item", "error", err)
	} else if jobItem, err := c.jobs.GetJobItemByItemID(ctx, item.ID); err == nil {
		if err := c.jobs.RecomputeJobStatus(ctx, jobItem.JobID); err != nil {
			logger.Error("failed to recompute job status", "job_id", jobItem.JobID, "error", err)
		}
	}

	c.publisher.Publish(events.NewProcessingFailed(item.ID, message))

	return nil
}
