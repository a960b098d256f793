package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	"github.com/clippings/clippings-api/internal/domain"
	"github.com/clippings/clippings-api/internal/store"
)

// Common sentinel errors for CaptureService
var (
	// ErrNoURLs indicates that an enqueue request carried no URLs.
	ErrNoURLs = errors.New("no URLs to enqueue")

	// ErrInvalidURL indicates that a URL could not be parsed or uses an
	// unsupported scheme.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrJobNotFound indicates that the requested job does not exist.
	ErrJobNotFound = errors.New("job not found")
)

// TriggerFunc requests a queue pass. Implementations must not block; the
// orchestrator's own guard makes redundant triggers harmless.
type TriggerFunc func()

// JobProgress reports a job's aggregate state together with its child items.
type JobProgress struct {
	Job   *domain.Job
	Items []*domain.JobItem
}

// CaptureService creates the items and jobs the queue engine works through.
type CaptureService struct {
	items   store.ItemStore
	jobs    store.JobStore
	trigger TriggerFunc
	logger  *slog.Logger
}

// NewCaptureService creates a new CaptureService. A nil trigger disables
// enqueue-driven queue passes; the interval ticker still runs them.
func NewCaptureService(
	items store.ItemStore,
	jobs store.JobStore,
	trigger TriggerFunc,
	logger *slog.Logger,
) *CaptureService {
	if trigger == nil {
		trigger = func() {}
	}
	return &CaptureService{
		items:   items,
		jobs:    jobs,
		trigger: trigger,
		logger:  logger.With("component", "capture_service"),
	}
}

// EnqueueBatch creates one awaiting-capture item per URL, a parent job, and
// the child job items mirroring each item, then requests a queue pass.
func (s *CaptureService) EnqueueBatch(ctx context.Context, urls []string) (*domain.Job, []*domain.Item, error) {
	if len(urls) == 0 {
		return nil, nil, ErrNoURLs
	}

	items := make([]*domain.Item, 0, len(urls))
	for _, raw := range urls {
		if err := validateURL(raw); err != nil {
			return nil, nil, err
		}

		item, err := domain.NewItem(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
		items = append(items, item)
	}

	job := domain.NewJob(len(items))
	jobItems := make([]*domain.JobItem, 0, len(items))

	for _, item := range items {
		if err := s.items.CreateItem(ctx, item); err != nil {
			return nil, nil, fmt.Errorf("failed to create item for %s: %w", item.URL, err)
		}

		ji, err := domain.NewJobItem(job.ID, item.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create job item: %w", err)
		}
		jobItems = append(jobItems, ji)
	}

	if err := s.jobs.CreateJob(ctx, job, jobItems); err != nil {
		return nil, nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info("batch enqueued",
		"job_id", job.ID,
		"item_count", len(items))

	s.trigger()

	return job, items, nil
}

// GetJobProgress retrieves a job and its child job items.
func (s *CaptureService) GetJobProgress(ctx context.Context, jobID uuid.UUID) (*JobProgress, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}

	items, err := s.jobs.GetJobItems(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job items: %w", err)
	}

	return &JobProgress{Job: job, Items: items}, nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: %q: scheme must be http or https", ErrInvalidURL, raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: %q: missing host", ErrInvalidURL, raw)
	}
	return nil
}
