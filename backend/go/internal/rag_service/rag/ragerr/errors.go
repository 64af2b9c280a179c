// Package ragerr defines the error taxonomy shared by the pipelines and the HTTP layer.
package ragerr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat is returned for uploads that are not PDF by content type or extension.
	ErrInvalidFormat = errors.New("invalid file format")
	// ErrProcessing covers text extraction and splitting failures.
	ErrProcessing = errors.New("processing failed")
	// ErrNotFound is returned when a record or filename is unknown or has no chunks.
	ErrNotFound = errors.New("not found")
	// ErrStore wraps relational and document store failures.
	ErrStore = errors.New("store error")
	// ErrVectorIndex wraps vector index failures, including lazy construction.
	ErrVectorIndex = errors.New("vector index error")
	// ErrLLM wraps embedding and language model failures.
	ErrLLM = errors.New("language model error")
	// ErrQueue is returned when an indexing task could not be scheduled.
	ErrQueue = errors.New("queue error")
	// ErrUnavailable is returned while a circuit breaker is open.
	ErrUnavailable = errors.New("service unavailable")
)

// FileError ties a failure to the uploaded file that caused it.
type FileError struct {
	Filename string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// NewFileError wraps err for filename.
func NewFileError(filename string, err error) error {
	return &FileError{Filename: filename, Err: err}
}

// Wrap returns an error that matches kind with errors.Is and keeps cause in the chain.
func Wrap(kind error, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}
