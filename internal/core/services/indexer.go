package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
	"github.com/custodia-labs/grabdocs/internal/logger"
)

// Indexer retry defaults.
const (
	DefaultEmbedAttempts = 3
	DefaultRetryBase     = 200 * time.Millisecond
	DefaultRetryMax      = 5 * time.Second
	DefaultEmbedTimeout  = 30 * time.Second
)

// IndexTarget identifies the file whose chunks are being indexed.
// FileID may be in any form ParseFileID accepts.
type IndexTarget struct {
	FileID   any
	OwnerID  string
	Kind     domain.Kind
	Filename string
}

// Indexer embeds chunks and swaps them into the vector index.
type Indexer struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	locks    *keyedMutex
	limiter  *rate.Limiter
	log      logger.Logger

	attempts     int
	retryBase    time.Duration
	retryMax     time.Duration
	embedTimeout time.Duration
	now          func() time.Time
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithEmbedTimeout bounds a single embedding attempt.
func WithEmbedTimeout(d time.Duration) IndexerOption {
	return func(ix *Indexer) {
		if d > 0 {
			ix.embedTimeout = d
		}
	}
}

// WithRetry sets the attempt count and backoff bounds for transient failures.
func WithRetry(attempts int, base, maxDelay time.Duration) IndexerOption {
	return func(ix *Indexer) {
		if attempts > 0 {
			ix.attempts = attempts
		}
		ix.retryBase = base
		ix.retryMax = maxDelay
	}
}

// WithRateLimit caps embedding calls per second. Zero disables limiting.
func WithRateLimit(perSecond float64) IndexerOption {
	return func(ix *Indexer) {
		if perSecond > 0 {
			ix.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithClock replaces time.Now for chunk timestamps.
func WithClock(now func() time.Time) IndexerOption {
	return func(ix *Indexer) {
		ix.now = now
	}
}

// NewIndexer creates an indexer over the given embedder and index.
func NewIndexer(embedder driven.EmbeddingService, index driven.VectorIndex, opts ...IndexerOption) *Indexer {
	ix := &Indexer{
		embedder:     embedder,
		index:        index,
		locks:        newKeyedMutex(),
		log:          logger.With("indexer"),
		attempts:     DefaultEmbedAttempts,
		retryBase:    DefaultRetryBase,
		retryMax:     DefaultRetryMax,
		embedTimeout: DefaultEmbedTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Lock serializes work on one file. The returned func releases it.
func (ix *Indexer) Lock(fileID domain.FileID) func() {
	return ix.locks.Lock(string(fileID))
}

// Index embeds chunks and replaces every index entry of the file with them.
//
// Chunks that fail permanently, or transiently past the retry budget, are
// skipped and counted. If chunks were given but none could be embedded the
// index is left untouched and an error is returned.
func (ix *Indexer) Index(ctx context.Context, target IndexTarget, chunks []domain.TextChunk) (domain.IndexReport, error) {
	fileID, err := domain.ParseFileID(target.FileID)
	if err != nil {
		return domain.IndexReport{}, fmt.Errorf("index: %w", err)
	}
	report := domain.IndexReport{FileID: fileID, Total: len(chunks)}

	unlock := ix.Lock(fileID)
	defer unlock()

	ix.log.Debug("file %s: embedding %d chunks", fileID, len(chunks))

	if len(chunks) > 0 {
		if err := ix.index.BindModel(ctx, ix.embedder.ModelName()); err != nil {
			return report, &domain.IndexWriteError{FileID: fileID, Op: "bind", Err: err}
		}
	}

	vectors, err := ix.embedChunks(ctx, fileID, chunks)
	if err != nil {
		return report, fmt.Errorf("index file %s: %w", fileID, err)
	}

	entries := make([]domain.Chunk, 0, len(chunks))
	now := ix.now()
	for i, tc := range chunks {
		vec := vectors[i]
		if vec == nil {
			report.Skipped++
			continue
		}
		if dims := ix.index.Dimensions(); dims > 0 && len(vec) != dims {
			return report, &domain.IndexWriteError{
				FileID: fileID,
				Op:     "embed",
				Err:    fmt.Errorf("%w: got %d, index has %d", domain.ErrDimensionMismatch, len(vec), dims),
			}
		}
		entries = append(entries, domain.Chunk{
			ID:        domain.ChunkID(fileID, tc.Ordinal),
			FileID:    fileID,
			OwnerID:   target.OwnerID,
			Kind:      target.Kind,
			Ordinal:   tc.Ordinal,
			Text:      tc.Text,
			Filename:  target.Filename,
			Embedding: vec,
			CreatedAt: now,
		})
	}

	if report.Total > 0 && len(entries) == 0 {
		return report, fmt.Errorf("index file %s: %w: all %d chunks failed to embed",
			fileID, domain.ErrEmbeddingUnavailable, report.Total)
	}

	if err := ix.index.ReplaceFile(ctx, fileID, entries); err != nil {
		var iwe *domain.IndexWriteError
		if errors.As(err, &iwe) {
			return report, err
		}
		return report, &domain.IndexWriteError{FileID: fileID, Op: "replace", Err: err}
	}

	report.Indexed = len(entries)
	ix.log.Info("file %s: indexed %d/%d chunks", fileID, report.Indexed, report.Total)
	return report, nil
}

// DeleteFile removes every index entry of a file under its lock.
func (ix *Indexer) DeleteFile(ctx context.Context, fileID domain.FileID) error {
	unlock := ix.Lock(fileID)
	defer unlock()

	if err := ix.index.DeleteFile(ctx, fileID); err != nil {
		return &domain.IndexWriteError{FileID: fileID, Op: "delete", Err: err}
	}
	return nil
}

// embedChunks returns one vector per chunk, nil where the chunk could not
// be embedded. A single batch call is tried first, then each chunk on its
// own with retries.
func (ix *Indexer) embedChunks(ctx context.Context, fileID domain.FileID, chunks []domain.TextChunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := ix.embedBatch(ctx, chunks)
	if err == nil {
		return vectors, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	ix.log.Debug("file %s: batch embedding failed, embedding chunks singly: %v", fileID, err)

	vectors = make([][]float32, len(chunks))
	for i, tc := range chunks {
		vec, err := ix.embed(ctx, tc.Text)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			ix.log.Warn("file %s: skipping chunk %d: %v", fileID, tc.Ordinal, err)
			continue
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (ix *Indexer) embedBatch(ctx context.Context, chunks []domain.TextChunk) ([][]float32, error) {
	if ix.limiter != nil {
		if err := ix.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	texts := make([]string, len(chunks))
	for i, tc := range chunks {
		texts[i] = tc.Text
	}

	batchCtx, cancel := context.WithTimeout(ctx, ix.embedTimeout)
	defer cancel()

	vectors, err := ix.embedder.EmbedBatch(batchCtx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("batch returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for _, vec := range vectors {
		if len(vec) == 0 {
			return nil, errors.New("batch returned an empty embedding")
		}
	}
	return vectors, nil
}

// embed runs one chunk through the embedder with bounded retries.
func (ix *Indexer) embed(ctx context.Context, text string) ([]float32, error) {
	delay := ix.retryBase
	var lastErr error

	for attempt := 1; attempt <= ix.attempts; attempt++ {
		if ix.limiter != nil {
			if err := ix.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		vec, err := ix.embedOnce(ctx, text)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if !domain.IsTransientEmbedding(err) || attempt == ix.attempts {
			break
		}

		ix.log.Debug("transient embedding failure (attempt %d/%d): %v", attempt, ix.attempts, err)
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay = min(delay*2, ix.retryMax)
	}
	return nil, lastErr
}

func (ix *Indexer) embedOnce(ctx context.Context, text string) ([]float32, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, ix.embedTimeout)
	defer cancel()

	vec, err := ix.embedder.Embed(attemptCtx, text)
	if err != nil {
		// An attempt that ran out of its own time is worth retrying.
		if ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && !domain.IsTransientEmbedding(err) {
			return nil, &domain.EmbeddingTransientError{Err: err}
		}
		return nil, err
	}
	if len(vec) == 0 {
		return nil, &domain.EmbeddingPermanentError{Err: errors.New("empty embedding")}
	}
	return vec, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
