package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the aggregate state of a batch job.
type JobStatus string

// Possible job status values
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusComplete   JobStatus = "complete"
	JobStatusError      JobStatus = "error"
)

// JobItemStatus represents the state of a single item within a batch job.
type JobItemStatus string

// Possible job item status values
const (
	JobItemStatusPending    JobItemStatus = "pending"
	JobItemStatusInProgress JobItemStatus = "in_progress"
	JobItemStatusComplete   JobItemStatus = "complete"
	JobItemStatusError      JobItemStatus = "error"
)

// Common validation errors for Job and JobItem
var (
	ErrEmptyJobID           = errors.New("job ID cannot be empty")
	ErrInvalidJobStatus     = errors.New("invalid job status")
	ErrEmptyJobItemID       = errors.New("job item ID cannot be empty")
	ErrEmptyParentJobID     = errors.New("parent job ID cannot be empty")
	ErrEmptyJobItemItemID   = errors.New("job item's item ID cannot be empty")
	ErrInvalidJobItemStatus = errors.New("invalid job item status")
)

// Job is the parent record for a batch of enqueued captures. Its status is
// derived by summarizing its child JobItems and is never authoritative on its
// own.
type Job struct {
	ID             uuid.UUID `json:"id"`
	Status         JobStatus `json:"status"`
	TotalItems     int       `json:"total_items"`
	CompletedItems int       `json:"completed_items"`
	FailedItems    int       `json:"failed_items"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewJob creates a new pending Job for a batch of the given size.
func NewJob(totalItems int) *Job {
	return &Job{
		ID:         uuid.New(),
		Status:     JobStatusPending,
		TotalItems: totalItems,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
}

// Validate checks if the Job has valid data.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}

	if !isValidJobStatus(j.Status) {
		return ErrInvalidJobStatus
	}

	return nil
}

// JobItem mirrors one Item's progress within one Job. It is a distinct
// aggregate so job-level reporting does not require re-deriving from Item
// state.
type JobItem struct {
	ID           uuid.UUID     `json:"id"`
	JobID        uuid.UUID     `json:"job_id"`
	ItemID       uuid.UUID     `json:"item_id"`
	Status       JobItemStatus `json:"status"`
	RetryCount   int           `json:"retry_count"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewJobItem creates a new pending JobItem linking an item to its parent job.
// Returns an error if validation fails.
func NewJobItem(jobID, itemID uuid.UUID) (*JobItem, error) {
	ji := &JobItem{
		ID:        uuid.New(),
		JobID:     jobID,
		ItemID:    itemID,
		Status:    JobItemStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := ji.Validate(); err != nil {
		return nil, err
	}

	return ji, nil
}

// Validate checks if the JobItem has valid data.
func (ji *JobItem) Validate() error {
	if ji.ID == uuid.Nil {
		return ErrEmptyJobItemID
	}

	if ji.JobID == uuid.Nil {
		return ErrEmptyParentJobID
	}

	if ji.ItemID == uuid.Nil {
		return ErrEmptyJobItemItemID
	}

	if !isValidJobItemStatus(ji.Status) {
		return ErrInvalidJobItemStatus
	}

	return nil
}

// IsTerminal reports whether the job item has reached a final state.
func (ji *JobItem) IsTerminal() bool {
	return ji.Status == JobItemStatusComplete || ji.Status == JobItemStatusError
}

// SummarizeJobStatus derives a parent job status from its child job items.
// A job is terminal only once no child is pending or in progress; it is an
// error job if every child failed, otherwise complete (partial failures
// still count as a completed batch).
func SummarizeJobStatus(items []*JobItem) JobStatus {
	if len(items) == 0 {
		return JobStatusComplete
	}

	var completed, failed int
	for _, ji := range items {
		switch ji.Status {
		case JobItemStatusComplete:
			completed++
		case JobItemStatusError:
			failed++
		case JobItemStatusInProgress:
			return JobStatusProcessing
		}
	}

	if completed+failed < len(items) {
		if completed+failed > 0 {
			return JobStatusProcessing
		}
		return JobStatusPending
	}

	if failed == len(items) {
		return JobStatusError
	}

	return JobStatusComplete
}

// isValidJobStatus checks if the given status is a valid JobStatus.
func isValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusPending, JobStatusProcessing, JobStatusComplete, JobStatusError:
		return true
	default:
		return false
	}
}

// isValidJobItemStatus checks if the given status is a valid JobItemStatus.
func isValidJobItemStatus(status JobItemStatus) bool {
	switch status {
	case JobItemStatusPending, JobItemStatusInProgress, JobItemStatusComplete, JobItemStatusError:
		return true
	default:
		return false
	}
}
