package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

func chunk(fileID domain.FileID, owner string, kind domain.Kind, ordinal int, vec ...float32) domain.Chunk {
	return domain.Chunk{
		ID:        domain.ChunkID(fileID, ordinal),
		FileID:    fileID,
		OwnerID:   owner,
		Kind:      kind,
		Ordinal:   ordinal,
		Embedding: vec,
	}
}

func TestVectorIndex_ReplaceFile(t *testing.T) {
	idx := NewVectorIndex(0)
	ctx := context.Background()

	require.NoError(t, idx.ReplaceFile(ctx, "1", []domain.Chunk{
		chunk("1", "alice", domain.KindDocument, 0, 1, 0),
		chunk("1", "alice", domain.KindDocument, 1, 0, 1),
	}))
	assert.Equal(t, 2, idx.Dimensions())

	n, _ := idx.CountFile(ctx, "1")
	assert.Equal(t, 2, n)

	require.NoError(t, idx.ReplaceFile(ctx, "1", []domain.Chunk{chunk("1", "alice", domain.KindDocument, 0, 1, 0)}))
	n, _ = idx.CountFile(ctx, "1")
	assert.Equal(t, 1, n)

	err := idx.ReplaceFile(ctx, "2", []domain.Chunk{chunk("2", "alice", domain.KindDocument, 0, 1, 0, 0)})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	err = idx.ReplaceFile(ctx, "2", []domain.Chunk{chunk("1", "alice", domain.KindDocument, 0, 1, 0)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, idx.DeleteFile(ctx, "1"))
	n, _ = idx.CountFile(ctx, "1")
	assert.Zero(t, n)
}

func TestVectorIndex_Search(t *testing.T) {
	idx := NewVectorIndex(2)
	ctx := context.Background()

	require.NoError(t, idx.ReplaceFile(ctx, "1", []domain.Chunk{chunk("1", "alice", domain.KindDocument, 0, 1, 0)}))
	require.NoError(t, idx.ReplaceFile(ctx, "2", []domain.Chunk{chunk("2", "alice", domain.KindReceipt, 0, 0.7, 0.7)}))
	require.NoError(t, idx.ReplaceFile(ctx, "3", []domain.Chunk{chunk("3", "bob", domain.KindDocument, 0, 1, 0)}))

	hits, err := idx.Search(ctx, []float32{1, 0}, domain.VectorFilter{OwnerID: "alice"}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, domain.FileID("1"), hits[0].Chunk.FileID)
	assert.Equal(t, domain.FileID("2"), hits[1].Chunk.FileID)

	receipt := domain.KindReceipt
	hits, err = idx.Search(ctx, []float32{1, 0}, domain.VectorFilter{OwnerID: "alice", Kind: &receipt}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, domain.FileID("2"), hits[0].Chunk.FileID)

	hits, err = idx.Search(ctx, []float32{1, 0}, domain.VectorFilter{OwnerID: "alice", FileIDs: []domain.FileID{"3"}}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = idx.Search(ctx, []float32{1, 0, 0}, domain.VectorFilter{OwnerID: "alice"}, 5)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestVectorIndex_BindModel(t *testing.T) {
	idx := NewVectorIndex(0)
	ctx := context.Background()

	assert.Empty(t, idx.Model())
	require.NoError(t, idx.BindModel(ctx, "nomic-embed-text"))
	require.NoError(t, idx.BindModel(ctx, "nomic-embed-text"))
	require.NoError(t, idx.BindModel(ctx, ""))
	assert.Equal(t, "nomic-embed-text", idx.Model())

	err := idx.BindModel(ctx, "text-embedding-3-small")
	assert.ErrorIs(t, err, domain.ErrModelMismatch)
	assert.Equal(t, "nomic-embed-text", idx.Model())
}
