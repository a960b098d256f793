package queue

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/clippings/clippings-api/internal/domain"
	"github.com/clippings/clippings-api/internal/events"
	"github.com/clippings/clippings-api/internal/generation"
	"github.com/clippings/clippings-api/internal/markdown"
	"github.com/clippings/clippings-api/internal/store"
)

// ProcessPhase derives structured knowledge from captured items: markdown,
// QA pairs, and embeddings. Items are processed strictly one at a time
// because the downstream generation and embedding services are rate-limited;
// only the three-way embedding fan-out within one item runs concurrently.
//
// Every stage checks existing output before recomputing, so re-entering a
// partially processed item after a crash or retry skips completed work.
type ProcessPhase struct {
	items     store.ItemStore
	content   store.ContentStore
	jobs      store.JobStore
	extractor markdown.Extractor
	generator generation.QAGenerator
	embedder  generation.EmbeddingProvider
	retry     *RetryCoordinator
	publisher events.Publisher
	logger    *slog.Logger
}

// NewProcessPhase creates a new ProcessPhase.
func NewProcessPhase(
	items store.ItemStore,
	content store.ContentStore,
	jobs store.JobStore,
	extractor markdown.Extractor,
	generator generation.QAGenerator,
	embedder generation.EmbeddingProvider,
	retry *RetryCoordinator,
	publisher events.Publisher,
	logger *slog.Logger,
) *ProcessPhase {
	return &ProcessPhase{
		items:     items,
		content:   content,
		jobs:      jobs,
		extractor: extractor,
		generator: generator,
		embedder:  embedder,
		retry:     retry,
		publisher: publisher,
		logger:    logger.With("component", "process_phase"),
	}
}

// Run processes the given items sequentially, in the order provided
// (the orchestrator loads them oldest-created-first).
func (p *ProcessPhase) Run(ctx context.Context, items []*domain.Item) {
	if len(items) == 0 {
		return
	}

	p.logger.Info("starting processing phase", "item_count", len(items))

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		p.processItem(ctx, item)
	}

	p.logger.Info("processing phase finished", "item_count", len(items))
}

// processItem drives one item through the three-stage pipeline, retrying
// inline with backoff until it succeeds or exhausts its budget.
func (p *ProcessPhase) processItem(ctx context.Context, item *domain.Item) {
	logger := p.logger.With("item_id", item.ID, "url", item.URL)

	p.publisher.Publish(events.NewProcessingStarted(item.ID))

	processing := domain.ItemStatusProcessing
	if err := p.items.UpdateItem(ctx, item.ID, store.ItemUpdate{Status: &processing}); err != nil {
		// Item stays in its resumable status for the next pass.
		logger.Error("failed to mark item processing", "error", err)
		return
	}
	item.Status = processing

	inProgress := domain.JobItemStatusInProgress
	if err := p.jobs.UpdateJobItemByItemID(ctx, item.ID, store.JobItemUpdate{Status: &inProgress}); err != nil {
		logger.Error("failed to mark job item in progress", "error", err)
	}

	for {
		if ctx.Err() != nil {
			return
		}

		err := p.runStages(ctx, item)
		if err == nil {
			p.completeProcessing(ctx, item)
			return
		}

		logger.Warn("processing attempt failed", "error", err, "retry_count", item.RetryCount)

		terminal, retryErr := p.retry.HandleErrorWithRetry(ctx, item, err, domain.ItemStatusAwaitingProcessing)
		if terminal {
			return
		}
		if retryErr != nil {
			logger.Error("retry handling aborted", "error", retryErr)
			return
		}

		// Re-enter at the top; completed stages are skipped via the
		// existence checks in runStages.
	}
}

// runStages executes the markdown, QA, and embedding stages for one item,
// skipping any stage whose output already exists.
func (p *ProcessPhase) runStages(ctx context.Context, item *domain.Item) error {
	logger := p.logger.With("item_id", item.ID)

	// Stage 1: markdown extraction.
	md, err := p.content.GetMarkdown(ctx, item.ID)
	if err != nil && !errors.Is(err, store.ErrMarkdownNotFound) {
		return &StorageFailure{Operation: "get", Entity: "markdown", Err: err}
	}
	if md == nil {
		text, err := p.extractor.Extract(ctx, item.Content, item.URL)
		if err != nil {
			return &ProcessingFailure{Stage: StageMarkdown, Err: err}
		}

		md, err = domain.NewMarkdownRecord(item.ID, text)
		if err != nil {
			return &ProcessingFailure{Stage: StageMarkdown, Err: err}
		}

		if err := p.content.SaveMarkdown(ctx, md); err != nil {
			return &StorageFailure{Operation: "save", Entity: "markdown", Err: err}
		}
		logger.Debug("markdown extracted", "markdown_length", len(text))
	} else {
		logger.Debug("markdown already stored, skipping extraction")
	}

	// Stage 2: QA pair generation.
	existing, err := p.content.GetQAPairs(ctx, item.ID)
	if err != nil {
		return &StorageFailure{Operation: "get", Entity: "qa_pairs", Err: err}
	}
	if len(existing) > 0 {
		logger.Debug("QA pairs already stored, skipping generation", "pair_count", len(existing))
		return nil
	}

	generated, err := p.generator.GeneratePairs(ctx, md.Content)
	if err != nil {
		return &ProcessingFailure{Stage: StageQA, Err: err}
	}

	// A zero-pair result is success: not every page yields extractable QA
	// content. The item completes with no searchable pairs.
	if len(generated) == 0 {
		logger.Warn("no QA pairs generated for item")
		return nil
	}
	logger.Debug("QA pairs generated", "pair_count", len(generated))

	pairs := make([]*domain.QAPair, 0, len(generated))
	for _, qa := range generated {
		pair, err := domain.NewQAPair(item.ID, qa.Question, qa.Answer)
		if err != nil {
			return &ProcessingFailure{Stage: StageQA, Err: err}
		}
		pairs = append(pairs, pair)
	}

	// Stage 3: embeddings over three fixed batches (question, answer,
	// combined), requested concurrently.
	if err := p.embedPairs(ctx, pairs); err != nil {
		return err
	}

	if err := p.content.SaveQAPairs(ctx, pairs); err != nil {
		return &StorageFailure{Operation: "save", Entity: "qa_pairs", Err: err}
	}

	return nil
}

// embedPairs computes the three embedding batches for the given pairs and
// attaches the vectors in place. The fan-out is unbounded because the batch
// count is fixed at three regardless of pair count.
func (p *ProcessPhase) embedPairs(ctx context.Context, pairs []*domain.QAPair) error {
	questions := make([]string, len(pairs))
	answers := make([]string, len(pairs))
	combined := make([]string, len(pairs))
	for i, pair := range pairs {
		questions[i] = pair.Question
		answers[i] = pair.Answer
		combined[i] = pair.CombinedText()
	}

	var questionVecs, answerVecs, combinedVecs [][]float32

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vecs, err := p.embedder.Embed(gctx, questions)
		if err != nil {
			return err
		}
		questionVecs = vecs
		return nil
	})
	g.Go(func() error {
		vecs, err := p.embedder.Embed(gctx, answers)
		if err != nil {
			return err
		}
		answerVecs = vecs
		return nil
	})
	g.Go(func() error {
		vecs, err := p.embedder.Embed(gctx, combined)
		if err != nil {
			return err
		}
		combinedVecs = vecs
		return nil
	})

	if err := g.Wait(); err != nil {
		return &ProcessingFailure{Stage: StageEmbed, Err: err}
	}

	if len(questionVecs) != len(pairs) || len(answerVecs) != len(pairs) || len(combinedVecs) != len(pairs) {
		return &ProcessingFailure{
			Stage: StageEmbed,
			Err:   errors.New("embedding provider returned mismatched vector count"),
		}
	}

	for i, pair := range pairs {
		pair.QuestionEmbedding = questionVecs[i]
		pair.AnswerEmbedding = answerVecs[i]
		pair.CombinedEmbedding = combinedVecs[i]
	}

	return nil
}

// completeProcessing marks the item fully processed, clears its retry
// bookkeeping, propagates job status, and announces readiness.
func (p *ProcessPhase) completeProcessing(ctx context.Context, item *domain.Item) {
	logger := p.logger.With("item_id", item.ID)

	complete := domain.ItemStatusComplete
	zero := 0
	empty := ""
	update := store.ItemUpdate{
		Status:       &complete,
		RetryCount:   &zero,
		ErrorMessage: &empty,
	}
	if err := p.items.UpdateItem(ctx, item.ID, update); err != nil {
		logger.Error("failed to mark item complete", "error", err)
		return
	}

	item.Status = complete
	item.RetryCount = 0
	item.ErrorMessage = ""

	jobComplete := domain.JobItemStatusComplete
	if err := p.jobs.UpdateJobItemByItemID(ctx, item.ID, store.JobItemUpdate{Status: &jobComplete}); err != nil {
		logger.Error("failed to mark job item complete", "error", err)
	} else if jobItem, err := p.jobs.GetJobItemByItemID(ctx, item.ID); err == nil {
		if err := p.jobs.RecomputeJobStatus(ctx, jobItem.JobID); err != nil {
			logger.Error("failed to recompute job status", "job_id", jobItem.JobID, "error", err)
		}
	}

	p.publisher.Publish(events.NewItemReady(item.ID))
	logger.Info("item processed")
}
