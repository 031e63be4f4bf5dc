package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/grabdocs/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/grabdocs/internal/chunker"
	"github.com/custodia-labs/grabdocs/internal/classifier"
	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
	"github.com/custodia-labs/grabdocs/internal/extractors"
)

// --- Mock implementations ---

// vocab gives stubEmbedder vectors one dimension per word, so texts that
// share words score close together.
var vocab = []string{"invoice", "total", "essay", "assignment", "form", "signature", "apple", "banana"}

func embedText(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, len(vocab)+1)
	for i, w := range vocab {
		vec[i] = float32(strings.Count(lower, w))
	}
	vec[len(vocab)] = 0.1
	return vec
}

// stubEmbedder implements driven.EmbeddingService with bag-of-words vectors.
type stubEmbedder struct {
	mu         sync.Mutex
	calls      int
	batchCalls int
	model      string
	fail       func(ctx context.Context, text string, call int) error
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	call := e.calls
	fail := e.fail
	e.mu.Unlock()

	if fail != nil {
		if err := fail(ctx, text, call); err != nil {
			return nil, err
		}
	}
	return embedText(text), nil
}

// EmbedBatch fails as a whole if fail rejects any text. fail sees call 0
// for batch requests.
func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.batchCalls++
	fail := e.fail
	e.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if fail != nil {
			if err := fail(ctx, t, 0); err != nil {
				return nil, err
			}
		}
		out[i] = embedText(t)
	}
	return out, nil
}

func (e *stubEmbedder) setFail(fn func(ctx context.Context, text string, call int) error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = fn
	e.calls = 0
	e.batchCalls = 0
}

func (e *stubEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *stubEmbedder) batchCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.batchCalls
}

func (e *stubEmbedder) Dimensions() int              { return len(vocab) + 1 }
func (e *stubEmbedder) Ping(_ context.Context) error { return nil }
func (e *stubEmbedder) Close() error                 { return nil }

func (e *stubEmbedder) ModelName() string {
	if e.model != "" {
		return e.model
	}
	return "stub"
}

// failingIndex wraps the memory index and fails writes on demand.
type failingIndex struct {
	*memory.VectorIndex
	replaceErr error
}

func (f *failingIndex) ReplaceFile(ctx context.Context, id domain.FileID, chunks []domain.Chunk) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}
	return f.VectorIndex.ReplaceFile(ctx, id, chunks)
}

// fixedIndex implements driven.VectorIndex returning canned hits.
type fixedIndex struct {
	hits  []domain.ScoredChunk
	dims  int
	model string
}

func (f *fixedIndex) ReplaceFile(_ context.Context, _ domain.FileID, _ []domain.Chunk) error {
	return nil
}

func (f *fixedIndex) DeleteFile(_ context.Context, _ domain.FileID) error {
	return nil
}

func (f *fixedIndex) Search(_ context.Context, _ []float32, _ domain.VectorFilter, k int) ([]domain.ScoredChunk, error) {
	out := make([]domain.ScoredChunk, len(f.hits))
	copy(out, f.hits)
	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}

func (f *fixedIndex) CountFile(_ context.Context, _ domain.FileID) (int, error) { return 0, nil }
func (f *fixedIndex) Dimensions() int                                           { return f.dims }
func (f *fixedIndex) Close() error                                              { return nil }
func (f *fixedIndex) Model() string                                             { return f.model }

func (f *fixedIndex) BindModel(_ context.Context, model string) error {
	if f.model != "" && f.model != model {
		return domain.ErrModelMismatch
	}
	f.model = model
	return nil
}

// anyFiles implements driven.FileStore lookups for any id, owned by owner.
type anyFiles struct {
	driven.FileStore
	owner   string
	missing map[domain.FileID]bool
}

func (f *anyFiles) GetFileRecord(_ context.Context, id domain.FileID) (*domain.FileRecord, error) {
	if f.missing[id] {
		return nil, domain.ErrNotFound
	}
	return &domain.FileRecord{ID: id, OwnerID: f.owner, Kind: domain.KindDocument}, nil
}

// brokenFiles fails record creation.
type brokenFiles struct {
	*memory.FileStore
}

func (b *brokenFiles) CreateFileRecord(_ context.Context, _ domain.NewFileRecord) (domain.FileID, error) {
	return "", errors.New("disk full")
}

// mockGenerator implements driven.AnswerGenerator.
type mockGenerator struct {
	answer string
	err    error
	query  string
	chunks []domain.RetrievedChunk
	called bool
}

func (g *mockGenerator) Generate(_ context.Context, query string, chunks []domain.RetrievedChunk) (string, error) {
	g.called = true
	g.query = query
	g.chunks = chunks
	return g.answer, g.err
}

// --- Test environment ---

type testEnv struct {
	files     *memory.FileStore
	blobs     *memory.BlobStore
	index     *memory.VectorIndex
	embedder  *stubEmbedder
	indexer   *Indexer
	retriever *Retriever
}

func fastRetry() IndexerOption {
	return WithRetry(3, time.Millisecond, 2*time.Millisecond)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		files:    memory.NewFileStore(),
		blobs:    memory.NewBlobStore(),
		index:    memory.NewVectorIndex(0),
		embedder: &stubEmbedder{},
	}
	env.indexer = NewIndexer(env.embedder, env.index, fastRetry())
	env.retriever = NewRetriever(env.embedder, env.index, env.files)
	return env
}

func (env *testEnv) pipeline(gen driven.AnswerGenerator) *Pipeline {
	return NewPipeline(PipelineDeps{
		Blobs:      env.blobs,
		Files:      env.files,
		Extractors: extractors.NewDefaultRegistry(),
		Classifier: classifier.New(),
		Chunker:    chunker.New(chunker.WithChunkSize(60), chunker.WithOverlap(10)),
		Indexer:    env.indexer,
		Retriever:  env.retriever,
		Generator:  gen,
	})
}

// seedFile creates a record and indexes one chunk per text.
func (env *testEnv) seedFile(t *testing.T, owner, filename string, kind domain.Kind, texts ...string) domain.FileID {
	t.Helper()
	ctx := context.Background()

	id, err := env.files.CreateFileRecord(ctx, domain.NewFileRecord{
		OwnerID:          owner,
		OriginalFilename: filename,
		StoredFilename:   owner + "/" + filename,
		MIMEType:         "text/plain",
	})
	require.NoError(t, err)
	require.NoError(t, env.files.UpdateFileKind(ctx, id, kind))
	require.NoError(t, env.blobs.Put(ctx, owner+"/"+filename, []byte(strings.Join(texts, " ")), "text/plain"))

	_, err = env.indexer.Index(ctx, IndexTarget{FileID: id, OwnerID: owner, Kind: kind, Filename: filename}, textChunks(texts...))
	require.NoError(t, err)
	return id
}

func textChunks(texts ...string) []domain.TextChunk {
	out := make([]domain.TextChunk, len(texts))
	for i, text := range texts {
		out[i] = domain.TextChunk{Ordinal: i, Text: text}
	}
	return out
}
