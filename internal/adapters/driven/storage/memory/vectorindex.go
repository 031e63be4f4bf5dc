package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/grabdocs/internal/adapters/driven/vector"
	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory implementation of driven.VectorIndex.
// Each file's chunks are swapped in whole under the write lock, so
// readers never observe a half-replaced file.
type VectorIndex struct {
	mu     sync.RWMutex
	dims   int
	model  string
	chunks map[domain.FileID][]domain.Chunk
}

// NewVectorIndex creates an empty index. A dims of 0 fixes the size on first write.
func NewVectorIndex(dims int) *VectorIndex {
	return &VectorIndex{
		dims:   dims,
		chunks: make(map[domain.FileID][]domain.Chunk),
	}
}

// ReplaceFile swaps the file's chunk set.
func (v *VectorIndex) ReplaceFile(_ context.Context, fileID domain.FileID, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if c.FileID != fileID {
			return fmt.Errorf("%w: chunk %s belongs to file %s", domain.ErrInvalidInput, c.ID, c.FileID)
		}
	}

	stored := make([]domain.Chunk, len(chunks))
	copy(stored, chunks)
	for i := range stored {
		if stored[i].ID == "" {
			stored[i].ID = domain.ChunkID(fileID, stored[i].Ordinal)
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	dims, err := vector.CheckDimensions(v.dims, stored)
	if err != nil {
		return fmt.Errorf("index has %d dimensions: %w", v.dims, err)
	}
	v.dims = dims

	if len(stored) == 0 {
		delete(v.chunks, fileID)
		return nil
	}
	v.chunks[fileID] = stored
	return nil
}

// DeleteFile removes every chunk of the file.
func (v *VectorIndex) DeleteFile(_ context.Context, fileID domain.FileID) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.chunks, fileID)
	return nil
}

// Search scores every chunk that passes the filter.
func (v *VectorIndex) Search(_ context.Context, query []float32, filter domain.VectorFilter, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.dims > 0 && len(query) != v.dims {
		return nil, fmt.Errorf("query has %d dimensions, index %d: %w", len(query), v.dims, domain.ErrDimensionMismatch)
	}

	var hits []domain.ScoredChunk
	for _, chunks := range v.chunks {
		for _, c := range chunks {
			if !filter.Matches(c) {
				continue
			}
			hits = append(hits, domain.ScoredChunk{Chunk: c, Score: vector.Cosine(query, c.Embedding)})
		}
	}
	return vector.TopK(hits, k), nil
}

// CountFile returns the number of chunks stored for the file.
func (v *VectorIndex) CountFile(_ context.Context, fileID domain.FileID) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.chunks[fileID]), nil
}

// Dimensions returns the fixed vector size.
func (v *VectorIndex) Dimensions() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dims
}

// Model returns the bound embedding model.
func (v *VectorIndex) Model() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.model
}

// BindModel fixes the embedding model on first use.
func (v *VectorIndex) BindModel(_ context.Context, model string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch {
	case model == "" || v.model == model:
		return nil
	case v.model != "":
		return fmt.Errorf("index was built with %s, not %s: %w", v.model, model, domain.ErrModelMismatch)
	}
	v.model = model
	return nil
}

// Close is a no-op.
func (v *VectorIndex) Close() error {
	return nil
}
