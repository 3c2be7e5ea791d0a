package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("text cannot be empty")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrMissingEmbedding  = errors.New("article has no embedding")
	ErrNotFound          = errors.New("key not found")
)

// ValidationError reports a malformed request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RemoteServiceError reports a failed call to an embedding or generation
// provider. Callers are expected to fall back rather than propagate it.
type RemoteServiceError struct {
	Service    string
	StatusCode int
	Err        error
}

func (e *RemoteServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Service, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// StorageError reports a durable store failure.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps any failure inside a chat turn.
type PipelineError struct {
	SessionID string
	Stage     string
	Err       error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("chat pipeline (session %s) failed at %s: %v", e.SessionID, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
