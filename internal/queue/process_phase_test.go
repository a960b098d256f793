package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clippings/clippings-api/internal/domain"
	"github.com/clippings/clippings-api/internal/events"
	"github.com/clippings/clippings-api/internal/generation"
)

type processFixture struct {
	items     *MockItemStore
	content   *MockContentStore
	jobs      *MockJobStore
	extractor *MockExtractor
	generator *MockQAGenerator
	embedder  *MockEmbedder
	recorder  *EventRecorder
	phase     *ProcessPhase
}

func newProcessFixture() *processFixture {
	f := &processFixture{
		items:     NewMockItemStore(),
		content:   NewMockContentStore(),
		jobs:      NewMockJobStore(),
		extractor: &MockExtractor{},
		generator: &MockQAGenerator{},
		embedder:  &MockEmbedder{},
		recorder:  &EventRecorder{},
	}

	coordinator := NewRetryCoordinator(f.items, f.jobs, f.recorder, testPolicy(), testLogger())
	f.phase = NewProcessPhase(
		f.items, f.content, f.jobs,
		f.extractor, f.generator, f.embedder,
		coordinator, f.recorder, testLogger(),
	)
	return f
}

func TestProcessPhase_FullPipeline(t *testing.T) {
	t.Parallel()

	f := newProcessFixture()
	item, job := seedItem(t, f.items, f.jobs, domain.ItemStatusCaptured)
	item.Content = "<html><body>Go is a language.</body></html>"

	f.generator.GenerateFn = func(context.Context, string) ([]generation.QuestionAnswer, error) {
		return []generation.QuestionAnswer{
			{Question: "What is Go?", Answer: "A language."},
			{Question: "Who made it?", Answer: "Google."},
		}, nil
	}

	f.phase.Run(context.Background(), []*domain.Item{item})

	stored, err := f.items.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusComplete, stored.Status)
	assert.Equal(t, 0, stored.RetryCount)
	assert.Empty(t, stored.ErrorMessage)

	// Markdown was extracted and persisted.
	md, err := f.content.GetMarkdown(context.Background(), item.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, md.Content)

	// Both pairs carry all three embedding vectors.
	pairs, err := f.content.GetQAPairs(context.Background(), item.ID)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	for _, pair := range pairs {
		assert.NotEmpty(t, pair.QuestionEmbedding)
		assert.NotEmpty(t, pair.AnswerEmbedding)
		assert.NotEmpty(t, pair.CombinedEmbedding)
	}

	// Three embedding batches, requested once each.
	assert.Equal(t, int64(3), f.embedder.Calls.Load())

	jobItem, err := f.jobs.GetJobItemByItemID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobItemStatusComplete, jobItem.Status)

	storedJob, err := f.jobs.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusComplete, storedJob.Status)
	assert.Equal(t, 1, storedJob.CompletedItems)

	// Both lifecycle edges were announced.
	assert.Len(t, f.recorder.EventsOfType(events.EventProcessingStarted), 1)
	ready := f.recorder.EventsOfType(events.EventItemReady)
	require.Len(t, ready, 1)
	assert.Equal(t, item.ID, ready[0].ItemID)
}

func TestProcessPhase_IdempotentSkips(t *testing.T) {
	t.Parallel()

	t.Run("existing markdown skips extraction", func(t *testing.T) {
		t.Parallel()

		f := newProcessFixture()
		item, _ := seedItem(t, f.items, f.jobs, domain.ItemStatusAwaitingProcessing)

		md, err := domain.NewMarkdownRecord(item.ID, "# already here")
		require.NoError(t, err)
		require.NoError(t, f.content.SaveMarkdown(context.Background(), md))

		f.phase.Run(context.Background(), []*domain.Item{item})

		assert.Equal(t, int64(0), f.extractor.Calls.Load())
		assert.Equal(t, int64(1), f.generator.Calls.Load())

		stored, err := f.items.GetItem(context.Background(), item.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ItemStatusComplete, stored.Status)
	})

	t.Run("existing QA pairs skip generation and embedding", func(t *testing.T) {
		t.Parallel()

		f := newProcessFixture()
		item, _ := seedItem(t, f.items, f.jobs, domain.ItemStatusAwaitingProcessing)

		md, err := domain.NewMarkdownRecord(item.ID, "# text")
		require.NoError(t, err)
		require.NoError(t, f.content.SaveMarkdown(context.Background(), md))

		pair, err := domain.NewQAPair(item.ID, "Q?", "A.")
		require.NoError(t, err)
		require.NoError(t, f.content.SaveQAPairs(context.Background(), []*domain.QAPair{pair}))

		f.phase.Run(context.Background(), []*domain.Item{item})

		assert.Equal(t, int64(0), f.extractor.Calls.Load())
		assert.Equal(t, int64(0), f.generator.Calls.Load())
		assert.Equal(t, int64(0), f.embedder.Calls.Load())

		stored, err := f.items.GetItem(context.Background(), item.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ItemStatusComplete, stored.Status)
	})
}

func TestProcessPhase_ZeroPairsIsSuccess(t *testing.T) {
	t.Parallel()

	f := newProcessFixture()
	item, _ := seedItem(t, f.items, f.jobs, domain.ItemStatusCaptured)
	item.Content = "<html><body>nothing useful</body></html>"

	f.generator.GenerateFn = func(context.Context, string) ([]generation.QuestionAnswer, error) {
		return nil, nil
	}

	f.phase.Run(context.Background(), []*domain.Item{item})

	stored, err := f.items.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusComplete, stored.Status)

	// No pairs were stored and no embeddings were requested.
	pairs, err := f.content.GetQAPairs(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Empty(t, pairs)
	assert.Equal(t, int64(0), f.embedder.Calls.Load())

	assert.Len(t, f.recorder.EventsOfType(events.EventItemReady), 1)
}

func TestProcessPhase_RetryThenSuccess(t *testing.T) {
	t.Parallel()

	f := newProcessFixture()
	item, _ := seedItem(t, f.items, f.jobs, domain.ItemStatusCaptured)
	item.Content = "<html>content</html>"

	// QA generation fails once, then succeeds. The markdown stage must not
	// be recomputed on the redo.
	var calls int
	f.generator.GenerateFn = func(context.Context, string) ([]generation.QuestionAnswer, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("rate limited")
		}
		return []generation.QuestionAnswer{{Question: "Q?", Answer: "A."}}, nil
	}

	f.phase.Run(context.Background(), []*domain.Item{item})

	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(1), f.extractor.Calls.Load(), "markdown must be extracted once, then reused")

	stored, err := f.items.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusComplete, stored.Status)
	assert.Equal(t, 0, stored.RetryCount)
	assert.Empty(t, stored.ErrorMessage)
}

func TestProcessPhase_TerminalFailure(t *testing.T) {
	t.Parallel()

	f := newProcessFixture()
	item, _ := seedItem(t, f.items, f.jobs, domain.ItemStatusCaptured)
	item.Content = "<html>content</html>"

	f.embedder.EmbedFn = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}

	f.phase.Run(context.Background(), []*domain.Item{item})

	stored, err := f.items.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusError, stored.Status)
	assert.Equal(t, "Failed after 3 attempts: embedding service down", stored.ErrorMessage)

	failed := f.recorder.EventsOfType(events.EventProcessingFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, item.ID, failed[0].ItemID)
}

func TestProcessPhase_SequentialAcrossItems(t *testing.T) {
	t.Parallel()

	f := newProcessFixture()

	var inFlight, maxInFlight int
	f.generator.GenerateFn = func(context.Context, string) ([]generation.QuestionAnswer, error) {
		// The phase is single-threaded across items, so unsynchronized
		// counters are safe here; the race detector will catch violations.
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		inFlight--
		return []generation.QuestionAnswer{{Question: "Q?", Answer: "A."}}, nil
	}

	batch := make([]*domain.Item, 0, 4)
	for i := 0; i < 4; i++ {
		item, _ := seedItem(t, f.items, f.jobs, domain.ItemStatusCaptured)
		item.Content = "<html>c</html>"
		batch = append(batch, item)
	}

	f.phase.Run(context.Background(), batch)

	assert.Equal(t, 1, maxInFlight)
	assert.Equal(t, int64(4), f.generator.Calls.Load())
}
