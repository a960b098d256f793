package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clippings/clippings-api/internal/domain"
	"github.com/clippings/clippings-api/internal/store"
)

func TestRecoveryScanner_ResetsStuckItems(t *testing.T) {
	t.Parallel()

	items := NewMockItemStore()
	jobs := NewMockJobStore()
	scanner := NewRecoveryScanner(items, jobs, testLogger())

	stuck, _ := seedItem(t, items, jobs, domain.ItemStatusProcessing)
	healthy, _ := seedItem(t, items, jobs, domain.ItemStatusComplete)
	waiting, _ := seedItem(t, items, jobs, domain.ItemStatusAwaitingCapture)

	require.NoError(t, scanner.Recover(context.Background()))

	storedStuck, err := items.GetItem(context.Background(), stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusAwaitingProcessing, storedStuck.Status)

	// Items in stable states are untouched.
	storedHealthy, err := items.GetItem(context.Background(), healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusComplete, storedHealthy.Status)

	storedWaiting, err := items.GetItem(context.Background(), waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusAwaitingCapture, storedWaiting.Status)
}

func TestRecoveryScanner_ResetsInProgressJobItems(t *testing.T) {
	t.Parallel()

	items := NewMockItemStore()
	jobs := NewMockJobStore()
	scanner := NewRecoveryScanner(items, jobs, testLogger())

	stuck, _ := seedItem(t, items, jobs, domain.ItemStatusProcessing)
	done, _ := seedItem(t, items, jobs, domain.ItemStatusComplete)

	inProgress := domain.JobItemStatusInProgress
	require.NoError(t, jobs.UpdateJobItemByItemID(
		context.Background(), stuck.ID, store.JobItemUpdate{Status: &inProgress}))
	complete := domain.JobItemStatusComplete
	require.NoError(t, jobs.UpdateJobItemByItemID(
		context.Background(), done.ID, store.JobItemUpdate{Status: &complete}))

	require.NoError(t, scanner.Recover(context.Background()))

	stuckJI, err := jobs.GetJobItemByItemID(context.Background(), stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobItemStatusPending, stuckJI.Status)

	doneJI, err := jobs.GetJobItemByItemID(context.Background(), done.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobItemStatusComplete, doneJI.Status)
}

func TestRecoveryScanner_NothingToRecover(t *testing.T) {
	t.Parallel()

	items := NewMockItemStore()
	jobs := NewMockJobStore()
	scanner := NewRecoveryScanner(items, jobs, testLogger())

	seedItem(t, items, jobs, domain.ItemStatusComplete)

	assert.NoError(t, scanner.Recover(context.Background()))
}

func TestRecoveryScanner_ScanFailureSurfaces(t *testing.T) {
	t.Parallel()

	items := NewMockItemStore()
	jobs := NewMockJobStore()
	scanner := NewRecoveryScanner(items, jobs, testLogger())

	broken := errors.New("database gone")
	items.GetByStatusFn = func(context.Context, int, ...domain.ItemStatus) ([]*domain.Item, error) {
		return nil, broken
	}

	err := scanner.Recover(context.Background())
	assert.ErrorIs(t, err, broken)
}
