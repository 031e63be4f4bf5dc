package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

var linkNow = time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC)

func testLink(token, owner string, maxUploads int) domain.UploadLink {
	return domain.UploadLink{
		Token:      token,
		OwnerID:    owner,
		Name:       "link " + token,
		MaxUploads: maxUploads,
		Active:     true,
		CreatedAt:  linkNow,
	}
}

func TestLinkStore_CreateAndGet(t *testing.T) {
	store := NewLinkStore()
	ctx := context.Background()

	require.NoError(t, store.CreateLink(ctx, testLink("t1", "alice", 3)))
	assert.ErrorIs(t, store.CreateLink(ctx, testLink("t1", "alice", 3)), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.CreateLink(ctx, testLink("", "alice", 3)), domain.ErrInvalidInput)

	link, err := store.GetLink(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "alice", link.OwnerID)
	assert.Equal(t, 3, link.MaxUploads)

	_, err = store.GetLink(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestLinkStore_ListNewestFirst(t *testing.T) {
	store := NewLinkStore()
	ctx := context.Background()

	older := testLink("old", "alice", 0)
	newer := testLink("new", "alice", 0)
	newer.CreatedAt = linkNow.Add(time.Hour)
	require.NoError(t, store.CreateLink(ctx, older))
	require.NoError(t, store.CreateLink(ctx, newer))
	require.NoError(t, store.CreateLink(ctx, testLink("bob", "bob", 0)))

	links, err := store.ListLinks(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "new", links[0].Token)
	assert.Equal(t, "old", links[1].Token)
}

func TestLinkStore_ReserveHonorsLimit(t *testing.T) {
	store := NewLinkStore()
	ctx := context.Background()
	require.NoError(t, store.CreateLink(ctx, testLink("t", "alice", 2)))

	link, err := store.ReserveUpload(ctx, "t", linkNow)
	require.NoError(t, err)
	assert.Equal(t, 1, link.CurrentUploads)

	_, err = store.ReserveUpload(ctx, "t", linkNow)
	require.NoError(t, err)

	_, err = store.ReserveUpload(ctx, "t", linkNow)
	assert.ErrorIs(t, err, domain.ErrLinkExhausted)

	require.NoError(t, store.ReleaseUpload(ctx, "t"))
	_, err = store.ReserveUpload(ctx, "t", linkNow)
	assert.NoError(t, err)
}

func TestLinkStore_ReserveChecksState(t *testing.T) {
	store := NewLinkStore()
	ctx := context.Background()

	expires := linkNow.Add(time.Hour)
	link := testLink("t", "alice", 0)
	link.ExpiresAt = &expires
	require.NoError(t, store.CreateLink(ctx, link))

	_, err := store.ReserveUpload(ctx, "t", linkNow.Add(2*time.Hour))
	assert.ErrorIs(t, err, domain.ErrLinkExpired)

	require.NoError(t, store.SetLinkActive(ctx, "t", false))
	_, err = store.ReserveUpload(ctx, "t", linkNow)
	assert.ErrorIs(t, err, domain.ErrLinkInactive)

	_, err = store.ReserveUpload(ctx, "missing", linkNow)
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
	assert.ErrorIs(t, store.SetLinkActive(ctx, "missing", true), domain.ErrLinkNotFound)
}

func TestLinkStore_ConcurrentReservations(t *testing.T) {
	store := NewLinkStore()
	ctx := context.Background()
	require.NoError(t, store.CreateLink(ctx, testLink("t", "alice", 5)))

	var ok atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.ReserveUpload(ctx, "t", linkNow); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), ok.Load())
	link, err := store.GetLink(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, 5, link.CurrentUploads)
}

func TestLinkStore_Delete(t *testing.T) {
	store := NewLinkStore()
	ctx := context.Background()
	require.NoError(t, store.CreateLink(ctx, testLink("t", "alice", 0)))

	require.NoError(t, store.DeleteLink(ctx, "t"))
	require.NoError(t, store.DeleteLink(ctx, "t"))
	_, err := store.GetLink(ctx, "t")
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}
