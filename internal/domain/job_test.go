package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	t.Parallel()

	job := NewJob(5)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 5, job.TotalItems)
	assert.Equal(t, 0, job.CompletedItems)
	assert.Equal(t, 0, job.FailedItems)
}

func TestNewJobItem(t *testing.T) {
	t.Parallel()

	jobID := uuid.New()
	itemID := uuid.New()

	ji, err := NewJobItem(jobID, itemID)
	require.NoError(t, err)
	assert.Equal(t, jobID, ji.JobID)
	assert.Equal(t, itemID, ji.ItemID)
	assert.Equal(t, JobItemStatusPending, ji.Status)

	_, err = NewJobItem(uuid.Nil, itemID)
	assert.ErrorIs(t, err, ErrEmptyParentJobID)

	_, err = NewJobItem(jobID, uuid.Nil)
	assert.ErrorIs(t, err, ErrEmptyJobItemItemID)
}

func TestSummarizeJobStatus(t *testing.T) {
	t.Parallel()

	withStatuses := func(statuses ...JobItemStatus) []*JobItem {
		items := make([]*JobItem, len(statuses))
		for i, status := range statuses {
			items[i] = &JobItem{Status: status}
		}
		return items
	}

	tests := []struct {
		name  string
		items []*JobItem
		want  JobStatus
	}{
		{"no items", nil, JobStatusComplete},
		{"all pending", withStatuses(JobItemStatusPending, JobItemStatusPending), JobStatusPending},
		{"one in progress", withStatuses(JobItemStatusComplete, JobItemStatusInProgress), JobStatusProcessing},
		{"partially done", withStatuses(JobItemStatusComplete, JobItemStatusPending), JobStatusProcessing},
		{"all complete", withStatuses(JobItemStatusComplete, JobItemStatusComplete), JobStatusComplete},
		{"all failed", withStatuses(JobItemStatusError, JobItemStatusError), JobStatusError},
		{
			"mixed outcome still counts as complete",
			withStatuses(JobItemStatusComplete, JobItemStatusError),
			JobStatusComplete,
		},
		{
			"pending child keeps failed batch open",
			withStatuses(JobItemStatusError, JobItemStatusPending),
			JobStatusProcessing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SummarizeJobStatus(tt.items))
		})
	}
}

func TestJobItemIsTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, (&JobItem{Status: JobItemStatusPending}).IsTerminal())
	assert.False(t, (&JobItem{Status: JobItemStatusInProgress}).IsTerminal())
	assert.True(t, (&JobItem{Status: JobItemStatusComplete}).IsTerminal())
	assert.True(t, (&JobItem{Status: JobItemStatusError}).IsTerminal())
}
