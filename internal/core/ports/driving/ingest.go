package driving

import (
	"context"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

// IngestService accepts uploads and runs the enrichment pipeline.
type IngestService interface {
	// Ingest stores the blob, creates the FileRecord and enriches it.
	// Once the record exists an IngestResult is always returned; enrichment
	// failures are reported through its State and Warnings.
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error)

	// Reindex reruns extraction, classification, chunking and indexing
	// for a stored file. Running it twice leaves the same index entries.
	Reindex(ctx context.Context, ownerID string, fileID domain.FileID) (*domain.IngestResult, error)
}
