package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driving"
	"github.com/custodia-labs/grabdocs/internal/logger"
)

// Ensure Pipeline implements the interfaces.
var (
	_ driving.IngestService = (*Pipeline)(nil)
	_ driving.QueryService  = (*Pipeline)(nil)
)

// DefaultPipelineTimeout bounds one enrichment run.
const DefaultPipelineTimeout = time.Duration(domain.DefaultPipelineTimeout) * time.Second

// Pipeline stores uploads and runs them through extraction, classification,
// chunking and indexing. It also answers queries over what it indexed.
type Pipeline struct {
	blobs      driven.BlobStore
	files      driven.FileStore
	extractors driven.ExtractorRegistry
	classifier driven.Classifier
	chunker    driven.Chunker
	indexer    *Indexer
	retriever  *Retriever
	generator  driven.AnswerGenerator
	timeout    time.Duration
	log        logger.Logger
}

// PipelineDeps holds the collaborators of a Pipeline.
type PipelineDeps struct {
	Blobs      driven.BlobStore
	Files      driven.FileStore
	Extractors driven.ExtractorRegistry
	Classifier driven.Classifier
	Chunker    driven.Chunker
	Indexer    *Indexer
	Retriever  *Retriever

	// Generator is optional. Without it queries return context only.
	Generator driven.AnswerGenerator
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineTimeout bounds one enrichment run.
func WithPipelineTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewPipeline creates a pipeline.
func NewPipeline(deps PipelineDeps, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		blobs:      deps.Blobs,
		files:      deps.Files,
		extractors: deps.Extractors,
		classifier: deps.Classifier,
		chunker:    deps.Chunker,
		indexer:    deps.Indexer,
		retriever:  deps.Retriever,
		generator:  deps.Generator,
		timeout:    DefaultPipelineTimeout,
		log:        logger.With("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ==================== Ingestion ====================

// Ingest stores the upload, creates its record and enriches it.
//
// Only storing the blob and creating the record can fail the call. Once
// the record exists enrichment runs to completion even if ctx is cancelled,
// and its outcome is reported in the result.
func (p *Pipeline) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	owner := strings.TrimSpace(req.OwnerID)
	if owner == "" {
		return nil, domain.ErrOwnerRequired
	}
	filename := filepath.Base(strings.TrimSpace(req.Filename))
	if filename == "." || filename == string(filepath.Separator) {
		filename = ""
	}

	logger.Section("Ingest")
	p.log.Info("owner=%s file=%q type=%s size=%d", owner, filename, req.MIMEType, len(req.Blob))

	key := BlobKey(owner, filename)
	if err := p.blobs.Put(ctx, key, req.Blob, req.MIMEType); err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}

	id, err := p.files.CreateFileRecord(ctx, domain.NewFileRecord{
		OwnerID:          owner,
		OriginalFilename: filename,
		StoredFilename:   key,
		MIMEType:         req.MIMEType,
		SizeBytes:        int64(len(req.Blob)),
	})
	if err != nil {
		if delErr := p.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			p.log.Warn("remove orphaned blob %s: %v", key, delErr)
		}
		return nil, fmt.Errorf("create file record: %w", err)
	}

	return p.enrich(ctx, enrichJob{
		id:       id,
		owner:    owner,
		filename: filename,
		mimeType: req.MIMEType,
		blob:     req.Blob,
	}), nil
}

// Reindex reruns enrichment over a stored file. Entries are replaced, not
// appended, so repeated runs leave the same index state.
func (p *Pipeline) Reindex(ctx context.Context, ownerID string, fileID domain.FileID) (*domain.IngestResult, error) {
	rec, err := loadOwned(ctx, p.files, ownerID, fileID)
	if err != nil {
		return nil, err
	}

	blob, err := p.blobs.Get(ctx, rec.StoredFilename)
	if err != nil {
		return nil, fmt.Errorf("load blob %s: %w", rec.StoredFilename, err)
	}

	logger.Section("Reindex")
	p.log.Info("owner=%s file=%s", rec.OwnerID, rec.ID)

	return p.enrich(ctx, enrichJob{
		id:       rec.ID,
		owner:    rec.OwnerID,
		filename: rec.OriginalFilename,
		mimeType: rec.MIMEType,
		blob:     blob,
	}), nil
}

type enrichJob struct {
	id       domain.FileID
	owner    string
	filename string
	mimeType string
	blob     []byte
}

// enrich drives one file through the state machine. It is detached from
// the caller's cancellation and bounded by the pipeline timeout instead.
func (p *Pipeline) enrich(parent context.Context, job enrichJob) *domain.IngestResult {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), p.timeout)
	defer cancel()

	result := &domain.IngestResult{
		FileID: job.id,
		Kind:   domain.KindUnknown,
		State:  domain.StateReceived,
	}

	fail := func(stage domain.IngestState, chunkCount int, err error) *domain.IngestResult {
		p.log.Warn("file %s failed at %s: %v", job.id, stage, err)
		result.State = domain.StateFailed
		result.FailedStage = stage
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", stage, err))
		if err := p.files.UpdateFileStatus(ctx, job.id, domain.StateFailed, stage, chunkCount); err != nil {
			p.log.Error("record failure of file %s: %v", job.id, err)
		}
		return result
	}

	// Extract.
	p.advance(ctx, result, domain.StateExtracting)
	text, err := p.extractors.Extract(ctx, job.blob, job.mimeType, job.filename)
	if err != nil {
		// Unreadable content keeps its record as unknown with nothing indexed.
		if kerr := p.files.UpdateFileKind(ctx, job.id, domain.KindUnknown); kerr != nil {
			p.log.Error("reset kind of file %s: %v", job.id, kerr)
		}
		if derr := p.indexer.DeleteFile(ctx, job.id); derr != nil {
			p.log.Error("clear index of file %s: %v", job.id, derr)
		}
		return fail(domain.StateExtracting, 0, err)
	}

	// Classify.
	p.advance(ctx, result, domain.StateClassifying)
	kind := p.classifier.Classify(text, job.filename)
	if err := p.files.UpdateFileKind(ctx, job.id, kind); err != nil {
		return fail(domain.StateClassifying, driven.KeepChunkCount, err)
	}
	result.Kind = kind
	p.log.Debug("file %s classified as %s", job.id, kind)

	// Chunk.
	p.advance(ctx, result, domain.StateChunking)
	chunks := p.chunker.Chunk(text)
	p.log.Debug("file %s split into %d chunks", job.id, len(chunks))

	// Index.
	p.advance(ctx, result, domain.StateIndexing)
	report, err := p.indexer.Index(ctx, IndexTarget{
		FileID:   job.id,
		OwnerID:  job.owner,
		Kind:     kind,
		Filename: job.filename,
	}, chunks)
	result.ChunksSkipped = report.Skipped
	if err != nil {
		return fail(domain.StateIndexing, driven.KeepChunkCount, err)
	}
	result.ChunksIndexed = report.Indexed
	result.Partial = report.Partial()
	if result.Partial {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("indexing: %d of %d chunks could not be embedded", report.Skipped, report.Total))
	}

	result.State = domain.StateDone
	if err := p.files.UpdateFileStatus(ctx, job.id, domain.StateDone, "", report.Indexed); err != nil {
		p.log.Error("record completion of file %s: %v", job.id, err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("status not saved: %v", err))
	}
	p.log.Info("file %s done: kind=%s chunks=%d skipped=%d", job.id, kind, report.Indexed, report.Skipped)
	return result
}

// advance records entry into a stage. Status writes are best effort.
func (p *Pipeline) advance(ctx context.Context, result *domain.IngestResult, state domain.IngestState) {
	result.State = state
	if err := p.files.UpdateFileStatus(ctx, result.FileID, state, "", driven.KeepChunkCount); err != nil {
		p.log.Warn("record state %s of file %s: %v", state, result.FileID, err)
	}
}

// ==================== Query ====================

// Query retrieves context for the request and, when asked and available,
// generates an answer from it.
func (p *Pipeline) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	filter, err := req.Filter()
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: query text is required", domain.ErrInvalidInput)
	}

	chunks, err := p.retriever.Retrieve(ctx, text, filter, req.TopK)
	if err != nil {
		return nil, err
	}

	result := &domain.QueryResult{
		AnswerContext:      chunks,
		IsDocumentSpecific: len(chunks) > 0,
		FiltersApplied:     domain.FiltersApplied{FileIDs: filter.FileIDs, Kind: filter.Kind},
		QueryType:          domain.QueryTypeFor(filter),
	}

	if !req.Generate {
		return result, nil
	}
	if p.generator == nil {
		p.log.Debug("no answer generator configured")
		return result, nil
	}

	answer, err := p.generator.Generate(ctx, text, chunks)
	if err != nil {
		if errors.Is(err, domain.ErrLLMUnavailable) {
			p.log.Warn("answer generation unavailable: %v", err)
			return result, nil
		}
		return nil, err
	}
	result.Answer = answer
	return result, nil
}

// Retrieve returns the top-k chunks matching filter.
func (p *Pipeline) Retrieve(ctx context.Context, query string, filter domain.RetrievalFilter, topK int) ([]domain.RetrievedChunk, error) {
	return p.retriever.Retrieve(ctx, query, filter, topK)
}

// ==================== Helpers ====================

// BlobKey returns a fresh storage key "<owner>/<uuid><ext>" for an upload.
func BlobKey(ownerID, filename string) string {
	return safeSegment(ownerID) + "/" + uuid.NewString() + safeExt(filename)
}

func safeSegment(s string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.', r == '@':
			return r
		default:
			return '_'
		}
	}, s)
	if strings.Trim(out, ".") == "" {
		return "_"
	}
	return out
}

func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// loadOwned returns a record only if it belongs to ownerID.
// Other owners' files are reported as not found.
func loadOwned(ctx context.Context, files driven.FileStore, ownerID string, fileID domain.FileID) (*domain.FileRecord, error) {
	owner := strings.TrimSpace(ownerID)
	if owner == "" {
		return nil, domain.ErrOwnerRequired
	}
	id, err := domain.ParseFileID(string(fileID))
	if err != nil {
		return nil, err
	}

	rec, err := files.GetFileRecord(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", id, err)
	}
	if rec.OwnerID != owner {
		return nil, fmt.Errorf("get file %s: %w", id, domain.ErrNotFound)
	}
	return rec, nil
}
