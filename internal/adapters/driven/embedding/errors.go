// Package embedding holds what the embedding adapters share: error
// classification into transient and permanent failures, and the response
// cache decorator.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

// ClassifyStatus wraps a failed provider response by HTTP status.
// 408, 429 and 5xx are worth retrying; other 4xx are not.
func ClassifyStatus(status int, err error) error {
	switch {
	case status == http.StatusRequestTimeout,
		status == http.StatusTooManyRequests,
		status >= http.StatusInternalServerError:
		return &domain.EmbeddingTransientError{Err: err}
	case status >= http.StatusBadRequest:
		return &domain.EmbeddingPermanentError{Err: err}
	default:
		return err
	}
}

// ClassifyTransport wraps an error from sending a request. Timeouts and
// refused or reset connections are transient. Cancellation is returned as is.
func ClassifyTransport(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return &domain.EmbeddingTransientError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &domain.EmbeddingTransientError{Err: err}
	}
	return &domain.EmbeddingTransientError{Err: fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)}
}

// Permanent marks a malformed response as not worth retrying.
func Permanent(format string, args ...any) error {
	return &domain.EmbeddingPermanentError{Err: fmt.Errorf(format, args...)}
}
