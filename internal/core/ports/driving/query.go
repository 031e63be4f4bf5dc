package driving

import (
	"context"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

// QueryService answers natural-language queries over an owner's files.
type QueryService interface {
	// Query retrieves context and optionally generates an answer.
	// Returns *domain.FilterValidationError for malformed filters; an empty
	// result is not an error.
	Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)

	// Retrieve returns the top-k chunks matching filter, best first.
	Retrieve(ctx context.Context, query string, filter domain.RetrievalFilter, topK int) ([]domain.RetrievedChunk, error)
}
