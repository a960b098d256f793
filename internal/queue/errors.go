package queue

import (
	"errors"
	"fmt"
)

// Sentinel errors for classifying pipeline failures.
var (
	// ErrFetchFailure marks a network or timeout failure while capturing
	// raw content.
	ErrFetchFailure = errors.New("fetch failure")

	// ErrProcessingFailure marks a failure in one of the content processing
	// stages (markdown, qa, embed).
	ErrProcessingFailure = errors.New("processing failure")

	// ErrStorageFailure marks a persistence failure during a status or
	// content update.
	ErrStorageFailure = errors.New("storage failure")

	// ErrSyncFailure marks a failure of the post-completion sync trigger.
	// Always non-fatal to the run as a whole.
	ErrSyncFailure = errors.New("sync failure")
)

// Processing stage names used in ProcessingFailure errors.
const (
	StageMarkdown = "markdown"
	StageQA       = "qa"
	StageEmbed    = "embed"
)

// FetchFailure describes a failed capture attempt for one item.
type FetchFailure struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *FetchFailure) Error() string {
	return fmt.Sprintf("fetch failure for %s: %v", e.URL, e.Err)
}

// Unwrap supports errors.Is against ErrFetchFailure and the cause.
func (e *FetchFailure) Unwrap() []error {
	return []error{ErrFetchFailure, e.Err}
}

// ProcessingFailure describes a failed content processing stage for one item.
type ProcessingFailure struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *ProcessingFailure) Error() string {
	return fmt.Sprintf("processing failure in %s stage: %v", e.Stage, e.Err)
}

// Unwrap supports errors.Is against ErrProcessingFailure and the cause.
func (e *ProcessingFailure) Unwrap() []error {
	return []error{ErrProcessingFailure, e.Err}
}

// StorageFailure describes a failed persistence operation.
type StorageFailure struct {
	Operation string
	Entity    string
	Err       error
}

// Error implements the error interface.
func (e *StorageFailure) Error() string {
	return fmt.Sprintf("storage failure during %s on %s: %v", e.Operation, e.Entity, e.Err)
}

// Unwrap supports errors.Is against ErrStorageFailure and the cause.
func (e *StorageFailure) Unwrap() []error {
	return []error{ErrStorageFailure, e.Err}
}

// rootCause returns the innermost human-readable cause for use in item
// error messages. Classification wrappers are stripped so the stored
// message matches what the collaborator reported.
func rootCause(err error) string {
	var fetchErr *FetchFailure
	if errors.As(err, &fetchErr) {
		return fetchErr.Err.Error()
	}

	var procErr *ProcessingFailure
	if errors.As(err, &procErr) {
		return procErr.Err.Error()
	}

	return err.Error()
}
