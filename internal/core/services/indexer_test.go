package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/grabdocs/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

func TestIndexer_IndexAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	report, err := env.indexer.Index(ctx, IndexTarget{FileID: "7", OwnerID: "alice", Kind: domain.KindDocument},
		textChunks("an essay", "on apples", "and bananas"))

	require.NoError(t, err)
	assert.Equal(t, domain.IndexReport{FileID: "7", Total: 3, Indexed: 3}, report)
	assert.False(t, report.Partial())

	n, err := env.index.CountFile(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestIndexer_EmbedsInOneBatch(t *testing.T) {
	env := newTestEnv(t)

	report, err := env.indexer.Index(context.Background(), IndexTarget{FileID: 2, OwnerID: "alice"},
		textChunks("invoice", "total", "signature", "form"))

	require.NoError(t, err)
	assert.Equal(t, 4, report.Indexed)
	assert.Equal(t, 1, env.embedder.batchCount())
	assert.Zero(t, env.embedder.callCount())
}

func TestIndexer_NormalizesFileID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, raw := range []any{166, 166.0, " 0166 ", int64(166)} {
		report, err := env.indexer.Index(ctx, IndexTarget{FileID: raw, OwnerID: "alice"}, textChunks("essay"))
		require.NoError(t, err)
		assert.Equal(t, domain.FileID("166"), report.FileID)
	}

	n, err := env.index.CountFile(ctx, "166")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndexer_InvalidFileID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.indexer.Index(context.Background(), IndexTarget{FileID: "abc", OwnerID: "alice"}, textChunks("x"))

	var fve *domain.FilterValidationError
	require.ErrorAs(t, err, &fve)
	assert.Equal(t, "file_id", fve.Field)
}

func TestIndexer_PartialOnPermanentFailure(t *testing.T) {
	env := newTestEnv(t)
	env.embedder.setFail(func(_ context.Context, text string, _ int) error {
		if strings.Contains(text, "bad") {
			return &domain.EmbeddingPermanentError{Err: errors.New("input too long")}
		}
		return nil
	})

	report, err := env.indexer.Index(context.Background(), IndexTarget{FileID: 1, OwnerID: "alice"},
		textChunks("good one", "bad one", "good two"))

	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed)
	assert.Equal(t, 1, report.Skipped)
	assert.True(t, report.Partial())
	// The batch failed once, then each chunk ran alone. Permanent failures
	// are not retried.
	assert.Equal(t, 1, env.embedder.batchCount())
	assert.Equal(t, 3, env.embedder.callCount())
}

func TestIndexer_RetriesTransientFailure(t *testing.T) {
	env := newTestEnv(t)
	env.embedder.setFail(func(_ context.Context, _ string, call int) error {
		if call < 3 {
			return &domain.EmbeddingTransientError{Err: errors.New("429")}
		}
		return nil
	})

	report, err := env.indexer.Index(context.Background(), IndexTarget{FileID: 1, OwnerID: "alice"}, textChunks("essay"))

	require.NoError(t, err)
	assert.Equal(t, 1, report.Indexed)
	assert.Equal(t, 3, env.embedder.callCount())
}

func TestIndexer_AttemptTimeoutIsRetried(t *testing.T) {
	env := newTestEnv(t)
	indexer := NewIndexer(env.embedder, env.index, WithRetry(2, time.Millisecond, time.Millisecond), WithEmbedTimeout(10*time.Millisecond))
	env.embedder.setFail(func(ctx context.Context, text string, _ int) error {
		if text == "slow" {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	})

	report, err := indexer.Index(context.Background(), IndexTarget{FileID: 1, OwnerID: "alice"}, textChunks("slow", "fast"))

	require.NoError(t, err)
	assert.Equal(t, 1, report.Indexed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 3, env.embedder.callCount())
}

func TestIndexer_AllFailedLeavesIndexIntact(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	target := IndexTarget{FileID: 1, OwnerID: "alice"}

	_, err := env.indexer.Index(ctx, target, textChunks("one", "two"))
	require.NoError(t, err)

	env.embedder.setFail(func(_ context.Context, _ string, _ int) error {
		return &domain.EmbeddingTransientError{Err: errors.New("503")}
	})
	report, err := env.indexer.Index(ctx, target, textChunks("three", "four", "five"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Equal(t, 3, report.Skipped)
	// Three attempts per chunk.
	assert.Equal(t, 9, env.embedder.callCount())

	n, err := env.index.CountFile(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIndexer_ReindexIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	target := IndexTarget{FileID: 3, OwnerID: "alice"}
	chunks := textChunks("a", "b", "c", "d")

	for range 3 {
		_, err := env.indexer.Index(ctx, target, chunks)
		require.NoError(t, err)
	}

	n, err := env.index.CountFile(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestIndexer_ShorterReindexDropsStaleChunks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	target := IndexTarget{FileID: 3, OwnerID: "alice"}

	_, err := env.indexer.Index(ctx, target, textChunks("a", "b", "c"))
	require.NoError(t, err)
	_, err = env.indexer.Index(ctx, target, textChunks("a"))
	require.NoError(t, err)

	n, err := env.index.CountFile(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIndexer_EmptyChunksClearFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	target := IndexTarget{FileID: 3, OwnerID: "alice"}

	_, err := env.indexer.Index(ctx, target, textChunks("a", "b"))
	require.NoError(t, err)
	report, err := env.indexer.Index(ctx, target, nil)
	require.NoError(t, err)
	assert.Zero(t, report.Total)

	n, err := env.index.CountFile(ctx, "3")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIndexer_ConcurrentReindexNeverDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	target := IndexTarget{FileID: 9, OwnerID: "alice"}
	chunks := textChunks("one", "two", "three")

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.indexer.Index(ctx, target, chunks)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	hits, err := env.index.Search(ctx, embedText("one"), domain.VectorFilter{OwnerID: "alice"}, 50)
	require.NoError(t, err)
	assert.Len(t, hits, 3)

	seen := map[string]bool{}
	for _, h := range hits {
		assert.False(t, seen[h.Chunk.ID], "duplicate chunk %s", h.Chunk.ID)
		seen[h.Chunk.ID] = true
	}
}

func TestIndexer_WriteError(t *testing.T) {
	env := newTestEnv(t)
	index := &failingIndex{VectorIndex: memory.NewVectorIndex(0), replaceErr: errors.New("database is locked")}
	indexer := NewIndexer(env.embedder, index, fastRetry())

	_, err := indexer.Index(context.Background(), IndexTarget{FileID: 4, OwnerID: "alice"}, textChunks("x"))

	var iwe *domain.IndexWriteError
	require.ErrorAs(t, err, &iwe)
	assert.Equal(t, domain.FileID("4"), iwe.FileID)
	assert.Equal(t, "replace", iwe.Op)
}

func TestIndexer_DimensionMismatch(t *testing.T) {
	env := newTestEnv(t)
	indexer := NewIndexer(env.embedder, memory.NewVectorIndex(3), fastRetry())

	_, err := indexer.Index(context.Background(), IndexTarget{FileID: 4, OwnerID: "alice"}, textChunks("x"))

	var iwe *domain.IndexWriteError
	require.ErrorAs(t, err, &iwe)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestIndexer_ChunkMetadata(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	indexer := NewIndexer(env.embedder, env.index, WithClock(func() time.Time { return now }), WithRateLimit(1000))

	_, err := indexer.Index(ctx, IndexTarget{FileID: 5, OwnerID: "bob", Kind: domain.KindReceipt, Filename: "r.txt"},
		textChunks("invoice total"))
	require.NoError(t, err)

	hits, err := env.index.Search(ctx, embedText("invoice"), domain.VectorFilter{OwnerID: "bob"}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)

	c := hits[0].Chunk
	assert.Equal(t, "5_chunk_0", c.ID)
	assert.Equal(t, domain.KindReceipt, c.Kind)
	assert.Equal(t, "r.txt", c.Filename)
	assert.Equal(t, now, c.CreatedAt)
}

func TestIndexer_DeleteFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.indexer.Index(ctx, IndexTarget{FileID: 2, OwnerID: "alice"}, textChunks("a", "b"))
	require.NoError(t, err)
	require.NoError(t, env.indexer.DeleteFile(ctx, "2"))

	n, err := env.index.CountFile(ctx, "2")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIndexer_ModelMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.indexer.Index(ctx, IndexTarget{FileID: 1, OwnerID: "alice"}, textChunks("essay"))
	require.NoError(t, err)
	assert.Equal(t, "stub", env.index.Model())

	// Same dimensions, different model.
	other := NewIndexer(&stubEmbedder{model: "other-model-v2"}, env.index, fastRetry())
	_, err = other.Index(ctx, IndexTarget{FileID: 2, OwnerID: "alice"}, textChunks("another essay"))

	var iwe *domain.IndexWriteError
	require.ErrorAs(t, err, &iwe)
	assert.Equal(t, "bind", iwe.Op)
	assert.ErrorIs(t, err, domain.ErrModelMismatch)

	n, err := env.index.CountFile(ctx, "2")
	require.NoError(t, err)
	assert.Zero(t, n)
}
