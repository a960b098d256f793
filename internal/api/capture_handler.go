package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/clippings/clippings-api/internal/domain"
	"github.com/clippings/clippings-api/internal/service"
)

// EnqueueRequest represents the request body for enqueueing a capture batch.
type EnqueueRequest struct {
	URLs []string `json:"urls" validate:"required,min=1,dive,required"`
}

// JobResponse represents the response data for a job.
type JobResponse struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	TotalItems     int       `json:"total_items"`
	CompletedItems int       `json:"completed_items"`
	FailedItems    int       `json:"failed_items"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// JobItemResponse represents one item's progress within a job.
type JobItemResponse struct {
	ItemID       string `json:"item_id"`
	Status       string `json:"status"`
	RetryCount   int    `json:"retry_count"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// JobProgressResponse combines a job with its child items.
type JobProgressResponse struct {
	Job   JobResponse       `json:"job"`
	Items []JobItemResponse `json:"items"`
}

// CaptureHandler handles capture-related HTTP requests.
type CaptureHandler struct {
	captures  *service.CaptureService
	validator *validator.Validate
	logger    *slog.Logger
}

// NewCaptureHandler creates a new CaptureHandler.
func NewCaptureHandler(captures *service.CaptureService, logger *slog.Logger) *CaptureHandler {
	return &CaptureHandler{
		captures:  captures,
		validator: validator.New(),
		logger:    logger.With("component", "capture_handler"),
	}
}

// Enqueue handles POST /captures requests.
func (h *CaptureHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	job, _, err := h.captures.EnqueueBatch(r.Context(), req.URLs)
	if err != nil {
		if errors.Is(err, service.ErrNoURLs) || errors.Is(err, service.ErrInvalidURL) {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to enqueue batch",
			"url_count", len(req.URLs),
			"error", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to enqueue batch")
		return
	}

	// Processing happens asynchronously; report the job for polling.
	RespondWithJSON(w, http.StatusAccepted, jobToResponse(job))
}

// GetJob handles GET /jobs/{id} requests.
func (h *CaptureHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	progress, err := h.captures.GetJobProgress(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			RespondWithError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error("failed to load job progress",
			"job_id", jobID,
			"error", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to load job")
		return
	}

	items := make([]JobItemResponse, 0, len(progress.Items))
	for _, ji := range progress.Items {
		items = append(items, JobItemResponse{
			ItemID:       ji.ItemID.String(),
			Status:       string(ji.Status),
			RetryCount:   ji.RetryCount,
			ErrorMessage: ji.ErrorMessage,
		})
	}

	RespondWithJSON(w, http.StatusOK, JobProgressResponse{
		Job:   jobToResponse(progress.Job),
		Items: items,
	})
}

func jobToResponse(job *domain.Job) JobResponse {
	return JobResponse{
		ID:             job.ID.String(),
		Status:         string(job.Status),
		TotalItems:     job.TotalItems,
		CompletedItems: job.CompletedItems,
		FailedItems:    job.FailedItems,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
	}
}
