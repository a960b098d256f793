package queue

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/clippings/clippings-api/internal/domain"
	"github.com/clippings/clippings-api/internal/store"
)

// MockItemStore implements store.ItemStore for testing. It keeps items in
// memory and allows overriding individual operations through function
// fields.
type MockItemStore struct {
	mutex sync.RWMutex
	items map[uuid.UUID]*domain.Item

	GetByStatusFn func(ctx context.Context, limit int, statuses ...domain.ItemStatus) ([]*domain.Item, error)
	UpdateFn      func(ctx context.Context, id uuid.UUID, update store.ItemUpdate) error
}

// NewMockItemStore creates a new MockItemStore.
func NewMockItemStore() *MockItemStore {
	return &MockItemStore{
		items: make(map[uuid.UUID]*domain.Item),
	}
}

// CreateItem saves an item to the mock store.
func (s *MockItemStore) CreateItem(_ context.Context, item *domain.Item) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	copied := *item
	s.items[item.ID] = &copied
	return nil
}

// GetItem retrieves an item by ID.
func (s *MockItemStore) GetItem(_ context.Context, id uuid.UUID) (*domain.Item, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, store.ErrItemNotFound
	}
	copied := *item
	return &copied, nil
}

// GetItemsByStatus retrieves items in the given statuses, oldest first.
func (s *MockItemStore) GetItemsByStatus(
	ctx context.Context,
	limit int,
	statuses ...domain.ItemStatus,
) ([]*domain.Item, error) {
	if s.GetByStatusFn != nil {
		return s.GetByStatusFn(ctx, limit, statuses...)
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	wanted := make(map[domain.ItemStatus]bool, len(statuses))
	for _, status := range statuses {
		wanted[status] = true
	}

	var result []*domain.Item
	for _, item := range s.items {
		if wanted[item.Status] {
			copied := *item
			result = append(result, &copied)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// UpdateItem applies a partial update to the stored item.
func (s *MockItemStore) UpdateItem(ctx context.Context, id uuid.UUID, update store.ItemUpdate) error {
	if s.UpdateFn != nil {
		return s.UpdateFn(ctx, id, update)
	}
	return s.applyUpdate(id, update)
}

// BulkUpdateItems applies the same update to every listed item.
func (s *MockItemStore) BulkUpdateItems(_ context.Context, ids []uuid.UUID, update store.ItemUpdate) error {
	for _, id := range ids {
		if err := s.applyUpdate(id, update); err != nil {
			return err
		}
	}
	return nil
}

func (s *MockItemStore) applyUpdate(id uuid.UUID, update store.ItemUpdate) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	item, ok := s.items[id]
	if !ok {
		return store.ErrItemNotFound
	}

	if update.Title != nil {
		item.Title = *update.Title
	}
	if update.Content != nil {
		item.Content = *update.Content
	}
	if update.Status != nil {
		item.Status = *update.Status
	}
	if update.RetryCount != nil {
		item.RetryCount = *update.RetryCount
	}
	if update.ErrorMessage != nil {
		item.ErrorMessage = *update.ErrorMessage
	}
	return nil
}

// MockContentStore implements store.ContentStore for testing and counts
// store hits so idempotency can be asserted.
type MockContentStore struct {
	mutex    sync.RWMutex
	markdown map[uuid.UUID]*domain.MarkdownRecord
	qaPairs  map[uuid.UUID][]*domain.QAPair

	SaveMarkdownFn func(ctx context.Context, record *domain.MarkdownRecord) error
	SaveQAPairsFn  func(ctx context.Context, pairs []*domain.QAPair) error
}

// NewMockContentStore creates a new MockContentStore.
func NewMockContentStore() *MockContentStore {
	return &MockContentStore{
		markdown: make(map[uuid.UUID]*domain.MarkdownRecord),
		qaPairs:  make(map[uuid.UUID][]*domain.QAPair),
	}
}

// GetMarkdown retrieves the markdown record for an item.
func (s *MockContentStore) GetMarkdown(_ context.Context, itemID uuid.UUID) (*domain.MarkdownRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	rec, ok := s.markdown[itemID]
	if !ok {
		return nil, store.ErrMarkdownNotFound
	}
	return rec, nil
}

// SaveMarkdown persists a markdown record.
func (s *MockContentStore) SaveMarkdown(ctx context.Context, record *domain.MarkdownRecord) error {
	if s.SaveMarkdownFn != nil {
		return s.SaveMarkdownFn(ctx, record)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.markdown[record.ItemID] = record
	return nil
}

// GetQAPairs retrieves the QA pairs stored for an item.
func (s *MockContentStore) GetQAPairs(_ context.Context, itemID uuid.UUID) ([]*domain.QAPair, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.qaPairs[itemID], nil
}

// SaveQAPairs persists QA pairs.
func (s *MockContentStore) SaveQAPairs(ctx context.Context, pairs []*domain.QAPair) error {
	if s.SaveQAPairsFn != nil {
		return s.SaveQAPairsFn(ctx, pairs)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, pair := range pairs {
		s.qaPairs[pair.ItemID] = append(s.qaPairs[pair.ItemID], pair)
	}
	return nil
}

// MockJobStore implements store.JobStore for testing.
type MockJobStore struct {
	mutex    sync.RWMutex
	jobs     map[uuid.UUID]*domain.Job
	jobItems map[uuid.UUID]*domain.JobItem // keyed by item ID

	RecomputeFn func(ctx context.Context, jobID uuid.UUID) error
}

// NewMockJobStore creates a new MockJobStore.
func NewMockJobStore() *MockJobStore {
	return &MockJobStore{
		jobs:     make(map[uuid.UUID]*domain.Job),
		jobItems: make(map[uuid.UUID]*domain.JobItem),
	}
}

// CreateJob saves a job and its child job items.
func (s *MockJobStore) CreateJob(_ context.Context, job *domain.Job, items []*domain.JobItem) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.jobs[job.ID] = job
	for _, ji := range items {
		s.jobItems[ji.ItemID] = ji
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *MockJobStore) GetJob(_ context.Context, id uuid.UUID) (*domain.Job, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	return job, nil
}

// GetJobItemByItemID retrieves the job item mirroring the given item.
func (s *MockJobStore) GetJobItemByItemID(_ context.Context, itemID uuid.UUID) (*domain.JobItem, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ji, ok := s.jobItems[itemID]
	if !ok {
		return nil, store.ErrJobItemNotFound
	}
	return ji, nil
}

// GetJobItems retrieves all child job items of a job.
func (s *MockJobStore) GetJobItems(_ context.Context, jobID uuid.UUID) ([]*domain.JobItem, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var result []*domain.JobItem
	for _, ji := range s.jobItems {
		if ji.JobID == jobID {
			result = append(result, ji)
		}
	}
	return result, nil
}

// UpdateJobItemByItemID applies a partial update to the mirrored job item.
// Items without a job item are a no-op, matching the store contract.
func (s *MockJobStore) UpdateJobItemByItemID(
	_ context.Context,
	itemID uuid.UUID,
	update store.JobItemUpdate,
) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ji, ok := s.jobItems[itemID]
	if !ok {
		return nil
	}

	if update.Status != nil {
		ji.Status = *update.Status
	}
	if update.RetryCount != nil {
		ji.RetryCount = *update.RetryCount
	}
	if update.ErrorMessage != nil {
		ji.ErrorMessage = *update.ErrorMessage
	}
	return nil
}

// RecomputeJobStatus re-derives the parent job status from its children.
func (s *MockJobStore) RecomputeJobStatus(ctx context.Context, jobID uuid.UUID) error {
	if s.RecomputeFn != nil {
		return s.RecomputeFn(ctx, jobID)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return store.ErrJobNotFound
	}

	var children []*domain.JobItem
	var completed, failed int
	for _, ji := range s.jobItems {
		if ji.JobID == jobID {
			children = append(children, ji)
			switch ji.Status {
			case domain.JobItemStatusComplete:
				completed++
			case domain.JobItemStatusError:
				failed++
			}
		}
	}

	job.Status = domain.SummarizeJobStatus(children)
	job.CompletedItems = completed
	job.FailedItems = failed
	return nil
}

// ResetInProgressJobItems resets in-progress job items back to pending.
func (s *MockJobStore) ResetInProgressJobItems(_ context.Context) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var count int64
	for _, ji := range s.jobItems {
		if ji.Status == domain.JobItemStatusInProgress {
			ji.Status = domain.JobItemStatusPending
			count++
		}
	}
	return count, nil
}

// Interface checks
var (
	_ store.ItemStore    = (*MockItemStore)(nil)
	_ store.ContentStore = (*MockContentStore)(nil)
	_ store.JobStore     = (*MockJobStore)(nil)
)
