package queue

import (
	"context"
	"log/slog"
	"sync"

	"github.com/clippings/clippings-api/internal/domain"
	"github.com/clippings/clippings-api/internal/fetch"
	"github.com/clippings/clippings-api/internal/store"
)

// FetchPhase downloads raw content for items awaiting capture. Items are
// distributed across a fixed-size worker pool rather than fired all at once,
// to respect downstream resource limits. One item's failure never halts the
// pool.
type FetchPhase struct {
	items       store.ItemStore
	jobs        store.JobStore
	fetcher     fetch.Fetcher
	retry       *RetryCoordinator
	concurrency int
	logger      *slog.Logger
}

// NewFetchPhase creates a new FetchPhase with the given worker count.
// A non-positive concurrency falls back to 1.
func NewFetchPhase(
	items store.ItemStore,
	jobs store.JobStore,
	fetcher fetch.Fetcher,
	retry *RetryCoordinator,
	concurrency int,
	logger *slog.Logger,
) *FetchPhase {
	if concurrency <= 0 {
		concurrency = 1
	}

	return &FetchPhase{
		items:       items,
		jobs:        jobs,
		fetcher:     fetcher,
		retry:       retry,
		concurrency: concurrency,
		logger:      logger.With("component", "fetch_phase"),
	}
}

// Run fetches content for every given item, bounded by the configured
// worker count. It returns once all items have settled (captured, scheduled
// for a later pass, or terminally failed).
func (p *FetchPhase) Run(ctx context.Context, items []*domain.Item) {
	if len(items) == 0 {
		return
	}

	p.logger.Info("starting fetch phase",
		"item_count", len(items),
		"concurrency", p.concurrency)

	work := make(chan *domain.Item)

	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				p.fetchItem(ctx, item)
			}
		}()
	}

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		work <- item
	}
	close(work)

	wg.Wait()
	p.logger.Info("fetch phase finished", "item_count", len(items))
}

// fetchItem drives one item through capture, retrying inline with backoff
// until it succeeds or exhausts its budget.
func (p *FetchPhase) fetchItem(ctx context.Context, item *domain.Item) {
	logger := p.logger.With("item_id", item.ID, "url", item.URL)

	inProgress := domain.JobItemStatusInProgress
	if err := p.jobs.UpdateJobItemByItemID(ctx, item.ID, store.JobItemUpdate{Status: &inProgress}); err != nil {
		logger.Error("failed to mark job item in progress", "error", err)
	}

	for {
		if ctx.Err() != nil {
			return
		}

		result, err := p.fetcher.FetchContent(ctx, item.URL)
		if err == nil {
			p.completeCapture(ctx, item, result)
			return
		}

		logger.Warn("fetch attempt failed", "error", err, "retry_count", item.RetryCount)

		failure := &FetchFailure{URL: item.URL, Err: err}
		terminal, retryErr := p.retry.HandleErrorWithRetry(ctx, item, failure, domain.ItemStatusAwaitingCapture)
		if terminal {
			return
		}
		if retryErr != nil {
			// Persisting the retry state failed or the wait was cancelled;
			// leave the item for the next pass.
			logger.Error("retry handling aborted", "error", retryErr)
			return
		}
	}
}

// completeCapture persists the fetched content and marks the capture leg of
// the pipeline done. Readiness is signaled only after full processing, so no
// event is published here.
func (p *FetchPhase) completeCapture(ctx context.Context, item *domain.Item, result *fetch.Result) {
	logger := p.logger.With("item_id", item.ID, "url", item.URL)

	captured := domain.ItemStatusCaptured
	zero := 0
	empty := ""
	update := store.ItemUpdate{
		Content:      &result.Content,
		Status:       &captured,
		RetryCount:   &zero,
		ErrorMessage: &empty,
	}
	if result.Title != "" {
		update.Title = &result.Title
	}

	if err := p.items.UpdateItem(ctx, item.ID, update); err != nil {
		// Item stays awaiting_capture and is retried on the next pass.
		logger.Error("failed to persist captured content", "error", err)
		return
	}

	item.Content = result.Content
	if result.Title != "" {
		item.Title = result.Title
	}
	item.Status = captured
	item.RetryCount = 0
	item.ErrorMessage = ""

	complete := domain.JobItemStatusComplete
	if err := p.jobs.UpdateJobItemByItemID(ctx, item.ID, store.JobItemUpdate{Status: &complete}); err != nil {
		logger.Error("failed to mark job item complete", "error", err)
	}

	logger.Info("item captured", "content_length", len(result.Content))
}
