package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/clippings/clippings-api/internal/events"
	"github.com/clippings/clippings-api/internal/fetch"
	"github.com/clippings/clippings-api/internal/generation"
)

// MockFetcher implements fetch.Fetcher for testing. FetchFn drives the
// behavior; Calls counts invocations across goroutines.
type MockFetcher struct {
	FetchFn func(ctx context.Context, url string) (*fetch.Result, error)
	Calls   atomic.Int64
}

// FetchContent implements fetch.Fetcher.
func (m *MockFetcher) FetchContent(ctx context.Context, url string) (*fetch.Result, error) {
	m.Calls.Add(1)
	return m.FetchFn(ctx, url)
}

// MockExtractor implements markdown.Extractor for testing.
type MockExtractor struct {
	ExtractFn func(ctx context.Context, content, url string) (string, error)
	Calls     atomic.Int64
}

// Extract implements markdown.Extractor.
func (m *MockExtractor) Extract(ctx context.Context, content, url string) (string, error) {
	m.Calls.Add(1)
	if m.ExtractFn != nil {
		return m.ExtractFn(ctx, content, url)
	}
	return "# " + url + "\n\n" + content, nil
}

// MockQAGenerator implements generation.QAGenerator for testing.
type MockQAGenerator struct {
	GenerateFn func(ctx context.Context, markdownText string) ([]generation.QuestionAnswer, error)
	Calls      atomic.Int64
}

// GeneratePairs implements generation.QAGenerator.
func (m *MockQAGenerator) GeneratePairs(
	ctx context.Context,
	markdownText string,
) ([]generation.QuestionAnswer, error) {
	m.Calls.Add(1)
	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, markdownText)
	}
	return []generation.QuestionAnswer{{Question: "What is this?", Answer: "A page."}}, nil
}

// MockEmbedder implements generation.EmbeddingProvider for testing. The
// default behavior returns one fixed-size vector per input text.
type MockEmbedder struct {
	EmbedFn func(ctx context.Context, texts []string) ([][]float32, error)
	Calls   atomic.Int64
}

// Embed implements generation.EmbeddingProvider.
func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.Calls.Add(1)
	if m.EmbedFn != nil {
		return m.EmbedFn(ctx, texts)
	}

	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{0.1, 0.2, 0.3}
	}
	return vecs, nil
}

// EventRecorder implements events.Publisher and records published events
// for assertions.
type EventRecorder struct {
	mutex  sync.Mutex
	events []events.PipelineEvent
}

// Publish implements events.Publisher.
func (r *EventRecorder) Publish(event events.PipelineEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, event)
}

// Events returns a snapshot of the recorded events.
func (r *EventRecorder) Events() []events.PipelineEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	snapshot := make([]events.PipelineEvent, len(r.events))
	copy(snapshot, r.events)
	return snapshot
}

// EventsOfType returns the recorded events of the given type.
func (r *EventRecorder) EventsOfType(eventType events.EventType) []events.PipelineEvent {
	var matched []events.PipelineEvent
	for _, e := range r.Events() {
		if e.Type == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

// MockSyncTrigger implements SyncTrigger for testing.
type MockSyncTrigger struct {
	TriggerFn func(ctx context.Context) error
	Calls     atomic.Int64
}

// TriggerIfEnabled implements SyncTrigger.
func (m *MockSyncTrigger) TriggerIfEnabled(ctx context.Context) error {
	m.Calls.Add(1)
	if m.TriggerFn != nil {
		return m.TriggerFn(ctx)
	}
	return nil
}
