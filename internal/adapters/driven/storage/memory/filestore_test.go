package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

func TestFileStore_CreateAndGet(t *testing.T) {
	store := NewFileStore()
	ctx := context.Background()

	id, err := store.CreateFileRecord(ctx, domain.NewFileRecord{OwnerID: "alice", OriginalFilename: "a.pdf", SizeBytes: 3})
	require.NoError(t, err)
	assert.Equal(t, domain.FileID("1"), id)

	rec, err := store.GetFileRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.KindUnknown, rec.Kind)
	assert.Equal(t, domain.StateReceived, rec.Status)
	assert.Equal(t, "a.pdf", rec.OriginalFilename)

	_, err = store.GetFileRecord(ctx, "2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.CreateFileRecord(ctx, domain.NewFileRecord{})
	assert.ErrorIs(t, err, domain.ErrOwnerRequired)
}

func TestFileStore_Updates(t *testing.T) {
	store := NewFileStore()
	ctx := context.Background()
	id, err := store.CreateFileRecord(ctx, domain.NewFileRecord{OwnerID: "alice"})
	require.NoError(t, err)

	require.NoError(t, store.UpdateFileKind(ctx, id, domain.KindForm))
	require.NoError(t, store.UpdateFileStatus(ctx, id, domain.StateDone, "", 4))
	require.NoError(t, store.UpdateFileStatus(ctx, id, domain.StateFailed, domain.StateExtracting, -1))

	rec, err := store.GetFileRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.KindForm, rec.Kind)
	assert.Equal(t, domain.StateFailed, rec.Status)
	assert.Equal(t, domain.StateExtracting, rec.FailedStage)
	assert.Equal(t, 4, rec.ChunkCount)

	assert.ErrorIs(t, store.UpdateFileKind(ctx, id, "memes"), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.UpdateFileKind(ctx, "99", domain.KindForm), domain.ErrNotFound)
	assert.ErrorIs(t, store.UpdateFileStatus(ctx, "99", domain.StateDone, "", 0), domain.ErrNotFound)
}

func TestFileStore_ListAndDelete(t *testing.T) {
	store := NewFileStore()
	ctx := context.Background()

	var ids []domain.FileID
	for _, owner := range []string{"alice", "alice", "bob", "alice"} {
		id, err := store.CreateFileRecord(ctx, domain.NewFileRecord{OwnerID: owner})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, store.UpdateFileKind(ctx, ids[1], domain.KindReceipt))

	got, err := store.ListFileIDs(ctx, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.FileID{"1", "2", "4"}, got)

	receipt := domain.KindReceipt
	got, err = store.ListFileIDs(ctx, "alice", &receipt)
	require.NoError(t, err)
	assert.Equal(t, []domain.FileID{"2"}, got)

	recs, err := store.ListFiles(ctx, "alice", nil)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, domain.FileID("4"), recs[0].ID)

	require.NoError(t, store.DeleteFileRecord(ctx, ids[0]))
	require.NoError(t, store.DeleteFileRecord(ctx, ids[0]))
	got, err = store.ListFileIDs(ctx, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.FileID{"2", "4"}, got)
}

func TestFileStore_ConcurrentCreate(t *testing.T) {
	store := NewFileStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.CreateFileRecord(ctx, domain.NewFileRecord{OwnerID: "alice"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	ids, err := store.ListFileIDs(ctx, "alice", nil)
	require.NoError(t, err)
	assert.Len(t, ids, 50)
	assert.Equal(t, domain.FileID("50"), ids[49])
}
