package queue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clippings/clippings-api/internal/domain"
	"github.com/clippings/clippings-api/internal/fetch"
)

func newFetchPhase(
	items *MockItemStore,
	jobs *MockJobStore,
	fetcher *MockFetcher,
	recorder *EventRecorder,
	concurrency int,
) *FetchPhase {
	coordinator := NewRetryCoordinator(items, jobs, recorder, testPolicy(), testLogger())
	return NewFetchPhase(items, jobs, fetcher, coordinator, concurrency, testLogger())
}

func TestFetchPhase_SuccessfulCapture(t *testing.T) {
	t.Parallel()

	items := NewMockItemStore()
	jobs := NewMockJobStore()
	recorder := &EventRecorder{}
	fetcher := &MockFetcher{
		FetchFn: func(context.Context, string) (*fetch.Result, error) {
			return &fetch.Result{Content: "<html>hello</html>", Title: "Hello"}, nil
		},
	}
	phase := newFetchPhase(items, jobs, fetcher, recorder, 2)

	item, _ := seedItem(t, items, jobs, domain.ItemStatusAwaitingCapture)

	phase.Run(context.Background(), []*domain.Item{item})

	stored, err := items.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusCaptured, stored.Status)
	assert.Equal(t, "<html>hello</html>", stored.Content)
	assert.Equal(t, "Hello", stored.Title)
	assert.Equal(t, 0, stored.RetryCount)
	assert.Empty(t, stored.ErrorMessage)

	jobItem, err := jobs.GetJobItemByItemID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobItemStatusComplete, jobItem.Status)

	// Readiness is signaled after full processing, not after fetch.
	assert.Empty(t, recorder.Events())
}

func TestFetchPhase_RetryCountLaw(t *testing.T) {
	t.Parallel()

	// A fetcher that fails exactly f times then succeeds must be invoked
	// exactly f+1 times, with retry bookkeeping cleared on success.
	const failures = 2

	items := NewMockItemStore()
	jobs := NewMockJobStore()
	fetcher := &MockFetcher{}
	var attempts atomic.Int64
	fetcher.FetchFn = func(context.Context, string) (*fetch.Result, error) {
		n := attempts.Add(1)
		if n <= failures {
			return nil, fmt.Errorf("net %d", n)
		}
		return &fetch.Result{Content: "payload"}, nil
	}
	phase := newFetchPhase(items, jobs, fetcher, &EventRecorder{}, 1)

	item, _ := seedItem(t, items, jobs, domain.ItemStatusAwaitingCapture)

	phase.Run(context.Background(), []*domain.Item{item})

	assert.Equal(t, int64(failures+1), fetcher.Calls.Load())

	stored, err := items.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusCaptured, stored.Status)
	assert.Equal(t, 0, stored.RetryCount)
	assert.Empty(t, stored.ErrorMessage)
}

func TestFetchPhase_TerminalFailureLaw(t *testing.T) {
	t.Parallel()

	items := NewMockItemStore()
	jobs := NewMockJobStore()
	recorder := &EventRecorder{}
	fetcher := &MockFetcher{
		FetchFn: func(context.Context, string) (*fetch.Result, error) {
			return nil, errors.New("timeout")
		},
	}
	phase := newFetchPhase(items, jobs, fetcher, recorder, 1)

	item, _ := seedItem(t, items, jobs, domain.ItemStatusAwaitingCapture)

	phase.Run(context.Background(), []*domain.Item{item})

	// maxRetries=2 means 3 attempts total.
	assert.Equal(t, int64(3), fetcher.Calls.Load())

	stored, err := items.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusError, stored.Status)
	assert.Equal(t, "Failed after 3 attempts: timeout", stored.ErrorMessage)

	jobItem, err := jobs.GetJobItemByItemID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobItemStatusError, jobItem.Status)
}

func TestFetchPhase_ConcurrencyBound(t *testing.T) {
	t.Parallel()

	const (
		concurrency = 3
		itemCount   = 10
	)

	items := NewMockItemStore()
	jobs := NewMockJobStore()

	var inFlight, maxInFlight atomic.Int64
	fetcher := &MockFetcher{
		FetchFn: func(context.Context, string) (*fetch.Result, error) {
			current := inFlight.Add(1)
			defer inFlight.Add(-1)

			// Track the high-water mark of concurrent fetches.
			for {
				max := maxInFlight.Load()
				if current <= max || maxInFlight.CompareAndSwap(max, current) {
					break
				}
			}

			time.Sleep(20 * time.Millisecond)
			return &fetch.Result{Content: "ok"}, nil
		},
	}
	phase := newFetchPhase(items, jobs, fetcher, &EventRecorder{}, concurrency)

	batch := make([]*domain.Item, 0, itemCount)
	for i := 0; i < itemCount; i++ {
		item, _ := seedItem(t, items, jobs, domain.ItemStatusAwaitingCapture)
		batch = append(batch, item)
	}

	phase.Run(context.Background(), batch)

	assert.Equal(t, int64(itemCount), fetcher.Calls.Load())
	assert.LessOrEqual(t, maxInFlight.Load(), int64(concurrency))
	assert.Positive(t, maxInFlight.Load())
}

func TestFetchPhase_PartialFailureDoesNotHaltPool(t *testing.T) {
	t.Parallel()

	items := NewMockItemStore()
	jobs := NewMockJobStore()

	badItem, _ := seedItem(t, items, jobs, domain.ItemStatusAwaitingCapture)
	goodItem, _ := seedItem(t, items, jobs, domain.ItemStatusAwaitingCapture)

	// Give the two items distinct URLs so the fetcher can tell them apart.
	badItem.URL = "https://bad.example.com"
	goodItem.URL = "https://good.example.com"

	fetcher := &MockFetcher{
		FetchFn: func(_ context.Context, url string) (*fetch.Result, error) {
			if url == badItem.URL {
				return nil, errors.New("unreachable")
			}
			return &fetch.Result{Content: "ok"}, nil
		},
	}

	phase := newFetchPhase(items, jobs, fetcher, &EventRecorder{}, 2)
	phase.Run(context.Background(), []*domain.Item{badItem, goodItem})

	stored, err := items.GetItem(context.Background(), goodItem.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusCaptured, stored.Status)

	storedBad, err := items.GetItem(context.Background(), badItem.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusError, storedBad.Status)
}
