package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
	"github.com/custodia-labs/grabdocs/internal/logger"
)

// overfetchFactor scales the index query so hits dropped after search can
// be replaced by lower ranked ones.
const overfetchFactor = 2

// Retriever finds the chunks of an owner's files closest to a query.
type Retriever struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	files    driven.FileStore
	log      logger.Logger
}

// NewRetriever creates a retriever. The embedder must be the one the index
// was built with.
func NewRetriever(embedder driven.EmbeddingService, index driven.VectorIndex, files driven.FileStore) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
		files:    files,
		log:      logger.With("retrieval"),
	}
}

// Retrieve returns up to topK chunks matching filter, best first.
// Fewer results, or none, are not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, filter domain.RetrievalFilter, topK int) ([]domain.RetrievedChunk, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	topK = domain.ClampTopK(topK)

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.RetrievedChunk{}, nil
	}
	if r.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	if m := r.index.Model(); m != "" && m != r.embedder.ModelName() {
		return nil, fmt.Errorf("index built with %q, query embedder is %q: %w", m, r.embedder.ModelName(), domain.ErrModelMismatch)
	}

	logger.Section("Retrieval")
	r.log.Debug("owner=%s files=%v kind=%v top_k=%d", filter.OwnerID, filter.FileIDs, filter.Kind, topK)

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if dims := r.index.Dimensions(); dims > 0 && len(vec) != dims {
		return nil, fmt.Errorf("query has %d dimensions, index %d: %w", len(vec), dims, domain.ErrDimensionMismatch)
	}

	hits, err := r.index.Search(ctx, vec, filter.VectorFilter(), topK*overfetchFactor)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	kept := hits[:0]
	for _, h := range hits {
		if h.Chunk.OwnerID != filter.OwnerID {
			r.log.Warn("dropping chunk %s of another owner", h.Chunk.ID)
			continue
		}
		kept = append(kept, h)
	}
	domain.SortScored(kept)

	return r.hydrate(ctx, kept, topK)
}

// hydrate attaches each hit's FileRecord and stops at limit results. Files
// deleted since indexing are skipped.
func (r *Retriever) hydrate(ctx context.Context, hits []domain.ScoredChunk, limit int) ([]domain.RetrievedChunk, error) {
	records := make(map[domain.FileID]*domain.FileRecord)
	out := make([]domain.RetrievedChunk, 0, len(hits))

	for _, h := range hits {
		if len(out) == limit {
			break
		}
		rec, seen := records[h.Chunk.FileID]
		if !seen {
			var err error
			rec, err = r.files.GetFileRecord(ctx, h.Chunk.FileID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("load file %s: %w", h.Chunk.FileID, err)
			}
			records[h.Chunk.FileID] = rec
		}
		if rec == nil {
			r.log.Debug("file %s vanished, skipping chunk %d", h.Chunk.FileID, h.Chunk.Ordinal)
			continue
		}
		out = append(out, domain.RetrievedChunk{Chunk: h.Chunk, File: *rec, Score: h.Score})
	}

	r.log.Info("retrieved %d chunks", len(out))
	return out, nil
}
