package driven

import (
	"context"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

// VectorIndex is the collection of embedded chunks shared by all owners,
// partitioned by owner metadata.
type VectorIndex interface {
	// ReplaceFile removes every entry of fileID and writes chunks in its place.
	// Transactional backends apply both steps as one unit.
	ReplaceFile(ctx context.Context, fileID domain.FileID, chunks []domain.Chunk) error

	// DeleteFile removes every entry of fileID.
	DeleteFile(ctx context.Context, fileID domain.FileID) error

	// Search returns up to k chunks matching filter, ranked by cosine similarity.
	Search(ctx context.Context, query []float32, filter domain.VectorFilter, k int) ([]domain.ScoredChunk, error)

	// CountFile returns the number of entries stored for fileID.
	CountFile(ctx context.Context, fileID domain.FileID) (int, error)

	// Dimensions returns the vector size of the collection, or 0 if not yet fixed.
	Dimensions() int

	// Model returns the embedding model the collection was built with,
	// or "" if none is recorded yet.
	Model() string

	// BindModel records model for a collection without one. A collection
	// already bound to another model returns domain.ErrModelMismatch.
	BindModel(ctx context.Context, model string) error

	// Close releases resources.
	Close() error
}
