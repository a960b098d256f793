package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clippings/clippings-api/internal/domain"
	"github.com/clippings/clippings-api/internal/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCaptureService_EnqueueBatch(t *testing.T) {
	t.Parallel()

	items := queue.NewMockItemStore()
	jobs := queue.NewMockJobStore()

	triggered := 0
	svc := NewCaptureService(items, jobs, func() { triggered++ }, testLogger())

	urls := []string{
		"https://example.com/a",
		"https://example.com/b",
	}

	job, created, err := svc.EnqueueBatch(context.Background(), urls)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, 2, job.TotalItems)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, 1, triggered)

	for i, item := range created {
		stored, err := items.GetItem(context.Background(), item.ID)
		require.NoError(t, err)
		assert.Equal(t, urls[i], stored.URL)
		assert.Equal(t, domain.ItemStatusAwaitingCapture, stored.Status)

		ji, err := jobs.GetJobItemByItemID(context.Background(), item.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, ji.JobID)
		assert.Equal(t, domain.JobItemStatusPending, ji.Status)
	}
}

func TestCaptureService_EnqueueBatchRejectsEmpty(t *testing.T) {
	t.Parallel()

	svc := NewCaptureService(queue.NewMockItemStore(), queue.NewMockJobStore(), nil, testLogger())

	_, _, err := svc.EnqueueBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoURLs)
}

func TestCaptureService_EnqueueBatchRejectsBadURLs(t *testing.T) {
	t.Parallel()

	items := queue.NewMockItemStore()
	svc := NewCaptureService(items, queue.NewMockJobStore(), nil, testLogger())

	for _, raw := range []string{"", "ftp://example.com/file", "https://", "not a url"} {
		_, _, err := svc.EnqueueBatch(context.Background(), []string{raw})
		assert.ErrorIs(t, err, ErrInvalidURL, "url %q", raw)
	}

	// Nothing was persisted for the rejected batches.
	stored, err := items.GetItemsByStatus(context.Background(), 0, domain.ItemStatusAwaitingCapture)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestCaptureService_GetJobProgress(t *testing.T) {
	t.Parallel()

	items := queue.NewMockItemStore()
	jobs := queue.NewMockJobStore()
	svc := NewCaptureService(items, jobs, nil, testLogger())

	job, created, err := svc.EnqueueBatch(context.Background(), []string{"https://example.com/a"})
	require.NoError(t, err)

	progress, err := svc.GetJobProgress(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, progress.Job.ID)
	require.Len(t, progress.Items, 1)
	assert.Equal(t, created[0].ID, progress.Items[0].ItemID)
}

func TestCaptureService_GetJobProgressNotFound(t *testing.T) {
	t.Parallel()

	svc := NewCaptureService(queue.NewMockItemStore(), queue.NewMockJobStore(), nil, testLogger())

	_, err := svc.GetJobProgress(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)
}
