package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/clippings/clippings-api/internal/domain"
)

// JobItemUpdate describes a partial update to a job item. Nil fields are
// left untouched by the store.
type JobItemUpdate struct {
	Status       *domain.JobItemStatus
	RetryCount   *int
	ErrorMessage *string
}

// JobStore defines the interface for job and job item persistence.
type JobStore interface {
	// CreateJob saves a new job and its child job items in one transaction.
	CreateJob(ctx context.Context, job *domain.Job, items []*domain.JobItem) error

	// GetJob retrieves a job by its ID.
	// Returns ErrJobNotFound if the job does not exist.
	GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// GetJobItemByItemID retrieves the job item mirroring the given item.
	// Returns ErrJobItemNotFound if the item is not part of any job.
	GetJobItemByItemID(ctx context.Context, itemID uuid.UUID) (*domain.JobItem, error)

	// GetJobItems retrieves all child job items of a job.
	GetJobItems(ctx context.Context, jobID uuid.UUID) ([]*domain.JobItem, error)

	// UpdateJobItemByItemID applies a partial update to the job item
	// mirroring the given item. Updating an item that belongs to no job is a
	// no-op, so the queue engine can run over items enqueued outside a batch.
	UpdateJobItemByItemID(ctx context.Context, itemID uuid.UUID, update JobItemUpdate) error

	// RecomputeJobStatus re-derives the parent job's status and progress
	// counters from its child job items.
	RecomputeJobStatus(ctx context.Context, jobID uuid.UUID) error

	// ResetInProgressJobItems resets every job item stuck in the in_progress
	// state back to pending. Used by crash recovery at process start.
	// Returns the number of job items reset.
	ResetInProgressJobItems(ctx context.Context) (int64, error)
}
