package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no extractor handles the MIME type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the answer generator is not configured.
	// Queries still return retrieved context without a generated answer.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index cannot be reached.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch indicates a vector does not match the index dimensionality.
	// Index and query must use the same embedding model.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrModelMismatch indicates the index was built with another embedding model.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrOwnerRequired indicates an operation was attempted without an owner id.
	ErrOwnerRequired = errors.New("owner id required")

	// ErrLinkNotFound indicates an unknown upload link token.
	ErrLinkNotFound = fmt.Errorf("upload link %w", ErrNotFound)

	// ErrLinkInactive indicates the owner paused the upload link.
	ErrLinkInactive = errors.New("upload link inactive")

	// ErrLinkExpired indicates the upload link is past its expiry.
	ErrLinkExpired = errors.New("upload link expired")

	// ErrLinkExhausted indicates the upload link reached its upload limit.
	ErrLinkExhausted = errors.New("upload link limit reached")
)

// ExtractionError reports unsupported, corrupt or empty content.
// The pipeline absorbs it: the file is kept with kind unknown and no chunks.
type ExtractionError struct {
	MIMEType string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.MIMEType == "" {
		return fmt.Sprintf("extraction failed: %v", e.Err)
	}
	return fmt.Sprintf("extraction failed for %s: %v", e.MIMEType, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingTransientError is a retryable embedding failure
// (timeouts, rate limits, 5xx, network errors).
type EmbeddingTransientError struct {
	Err error
}

func (e *EmbeddingTransientError) Error() string {
	return fmt.Sprintf("transient embedding failure: %v", e.Err)
}

func (e *EmbeddingTransientError) Unwrap() error { return e.Err }

// EmbeddingPermanentError is an embedding failure that retrying will not fix.
type EmbeddingPermanentError struct {
	Err error
}

func (e *EmbeddingPermanentError) Error() string {
	return fmt.Sprintf("permanent embedding failure: %v", e.Err)
}

func (e *EmbeddingPermanentError) Unwrap() error { return e.Err }

// IndexWriteError is fatal to a single indexing attempt.
type IndexWriteError struct {
	FileID FileID
	Op     string
	Err    error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("index %s for file %s: %v", e.Op, e.FileID, e.Err)
}

func (e *IndexWriteError) Unwrap() error { return e.Err }

// FilterValidationError reports a malformed caller-supplied filter value.
// It is always returned to the caller, never treated as "no match".
type FilterValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *FilterValidationError) Error() string {
	return fmt.Sprintf("invalid filter %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidInput) match filter failures.
func (e *FilterValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// IsTransientEmbedding reports whether err should be retried by the indexer.
func IsTransientEmbedding(err error) bool {
	var t *EmbeddingTransientError
	return errors.As(err, &t)
}
