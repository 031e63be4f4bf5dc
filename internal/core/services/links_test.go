package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/grabdocs/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

// failingIngest rejects every upload.
type failingIngest struct {
	err error
}

func (f *failingIngest) Ingest(context.Context, domain.IngestRequest) (*domain.IngestResult, error) {
	return nil, f.err
}

func (f *failingIngest) Reindex(context.Context, string, domain.FileID) (*domain.IngestResult, error) {
	return nil, f.err
}

type linkFixture struct {
	env     *testEnv
	store   *memory.LinkStore
	service *LinkService
	now     time.Time
}

func newLinkFixture(t *testing.T) *linkFixture {
	t.Helper()
	f := &linkFixture{
		env:   newTestEnv(t),
		store: memory.NewLinkStore(),
		now:   time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC),
	}
	n := 0
	f.service = NewLinkService(f.store, f.env.pipeline(nil),
		WithLinkClock(func() time.Time { return f.now }),
		WithTokenGenerator(func() string { n++; return fmt.Sprintf("tok%d", n) }),
	)
	return f
}

func textUpload(name, text string) domain.IngestRequest {
	return domain.IngestRequest{OwnerID: "mallory", Blob: []byte(text), MIMEType: "text/plain", Filename: name}
}

func intRef(n int) *int { return &n }

func TestLinkService_CreateAppliesDefaults(t *testing.T) {
	f := newLinkFixture(t)

	link, err := f.service.Create(context.Background(), domain.NewUploadLink{OwnerID: "alice", Name: "Receipts"})

	require.NoError(t, err)
	assert.Equal(t, "tok1", link.Token)
	assert.Equal(t, domain.DefaultMaxUploads, link.MaxUploads)
	assert.True(t, link.Active)
	assert.Nil(t, link.ExpiresAt)

	stored, err := f.store.GetLink(context.Background(), "tok1")
	require.NoError(t, err)
	assert.Equal(t, *link, *stored)
}

func TestLinkService_CreateValidates(t *testing.T) {
	f := newLinkFixture(t)

	_, err := f.service.Create(context.Background(), domain.NewUploadLink{OwnerID: "alice", Name: "x", MaxUploads: intRef(0)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.service.Create(context.Background(), domain.NewUploadLink{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrOwnerRequired)
}

func TestLinkService_IngestViaLinkUsesLinkOwner(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()
	link, err := f.service.Create(ctx, domain.NewUploadLink{OwnerID: "alice", Name: "Essays"})
	require.NoError(t, err)

	res, err := f.service.IngestViaLink(ctx, link.Token, textUpload("essay.txt", "An essay about the assignment."))
	require.NoError(t, err)
	assert.Equal(t, domain.StateDone, res.State)

	rec, err := f.env.files.GetFileRecord(ctx, res.FileID)
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.OwnerID)

	stored, err := f.store.GetLink(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentUploads)
}

func TestLinkService_IngestViaLinkEnforcesQuota(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()
	link, err := f.service.Create(ctx, domain.NewUploadLink{OwnerID: "alice", Name: "Two", MaxUploads: intRef(2)})
	require.NoError(t, err)

	for i := range 2 {
		_, err := f.service.IngestViaLink(ctx, link.Token, textUpload(fmt.Sprintf("f%d.txt", i), "essay"))
		require.NoError(t, err)
	}

	_, err = f.service.IngestViaLink(ctx, link.Token, textUpload("f3.txt", "essay"))
	assert.ErrorIs(t, err, domain.ErrLinkExhausted)

	files, err := f.env.files.ListFiles(ctx, "alice", nil)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestLinkService_IngestViaLinkEnforcesExpiry(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()
	link, err := f.service.Create(ctx, domain.NewUploadLink{OwnerID: "alice", Name: "Week", ExpiresInDays: intRef(7)})
	require.NoError(t, err)

	f.now = f.now.AddDate(0, 0, 6)
	_, err = f.service.IngestViaLink(ctx, link.Token, textUpload("a.txt", "essay"))
	require.NoError(t, err)

	f.now = f.now.AddDate(0, 0, 1)
	_, err = f.service.IngestViaLink(ctx, link.Token, textUpload("b.txt", "essay"))
	assert.ErrorIs(t, err, domain.ErrLinkExpired)

	_, err = f.service.Resolve(ctx, link.Token)
	assert.ErrorIs(t, err, domain.ErrLinkExpired)
}

func TestLinkService_IngestViaPausedLink(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()
	link, err := f.service.Create(ctx, domain.NewUploadLink{OwnerID: "alice", Name: "n"})
	require.NoError(t, err)

	paused, err := f.service.SetActive(ctx, "alice", link.Token, false)
	require.NoError(t, err)
	assert.False(t, paused.Active)

	_, err = f.service.IngestViaLink(ctx, link.Token, textUpload("a.txt", "essay"))
	assert.ErrorIs(t, err, domain.ErrLinkInactive)

	_, err = f.service.SetActive(ctx, "alice", link.Token, true)
	require.NoError(t, err)
	_, err = f.service.IngestViaLink(ctx, link.Token, textUpload("a.txt", "essay"))
	assert.NoError(t, err)
}

func TestLinkService_UnknownToken(t *testing.T) {
	f := newLinkFixture(t)

	_, err := f.service.IngestViaLink(context.Background(), "nope", textUpload("a.txt", "essay"))
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)

	_, err = f.service.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLinkService_FailedIngestReleasesReservation(t *testing.T) {
	store := memory.NewLinkStore()
	svc := NewLinkService(store, &failingIngest{err: errors.New("blob store down")})
	ctx := context.Background()
	link, err := svc.Create(ctx, domain.NewUploadLink{OwnerID: "alice", Name: "One", MaxUploads: intRef(1)})
	require.NoError(t, err)

	_, err = svc.IngestViaLink(ctx, link.Token, textUpload("a.txt", "essay"))
	require.Error(t, err)

	stored, err := store.GetLink(ctx, link.Token)
	require.NoError(t, err)
	assert.Zero(t, stored.CurrentUploads)
}

func TestLinkService_OwnerScoping(t *testing.T) {
	f := newLinkFixture(t)
	ctx := context.Background()
	link, err := f.service.Create(ctx, domain.NewUploadLink{OwnerID: "alice", Name: "n"})
	require.NoError(t, err)
	_, err = f.service.Create(ctx, domain.NewUploadLink{OwnerID: "bob", Name: "m"})
	require.NoError(t, err)

	_, err = f.service.Get(ctx, "bob", link.Token)
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
	_, err = f.service.SetActive(ctx, "bob", link.Token, false)
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
	assert.ErrorIs(t, f.service.Delete(ctx, "bob", link.Token), domain.ErrLinkNotFound)

	links, err := f.service.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, link.Token, links[0].Token)

	require.NoError(t, f.service.Delete(ctx, "alice", link.Token))
	links, err = f.service.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, links)

	_, err = f.service.List(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrOwnerRequired)
}
