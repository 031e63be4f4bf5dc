package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/grabdocs/internal/adapters/driven/ai"
	"github.com/custodia-labs/grabdocs/internal/adapters/driven/blob/filesystem"
	s3blob "github.com/custodia-labs/grabdocs/internal/adapters/driven/blob/s3"
	"github.com/custodia-labs/grabdocs/internal/adapters/driven/config/file"
	"github.com/custodia-labs/grabdocs/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/grabdocs/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/grabdocs/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/grabdocs/internal/adapters/driven/vector/milvus"
	"github.com/custodia-labs/grabdocs/internal/chunker"
	"github.com/custodia-labs/grabdocs/internal/classifier"
	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
	"github.com/custodia-labs/grabdocs/internal/core/services"
	"github.com/custodia-labs/grabdocs/internal/extractors"
	"github.com/custodia-labs/grabdocs/internal/logger"
)

// wiring holds every handle opened for one command run.
type wiring struct {
	pipeline *services.Pipeline
	files    *services.FileService
	links    *services.LinkService
	warnings []string
	closers  []func() error
}

func (w *wiring) onClose(fn func() error) {
	w.closers = append(w.closers, fn)
}

// Close releases handles in reverse order of opening.
func (w *wiring) Close() error {
	var errs []error
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	w.closers = nil
	return errors.Join(errs...)
}

// buildServices constructs the pipeline and its collaborators from settings.
// On error every handle opened so far is closed.
func buildServices(ctx context.Context, settings *domain.AppSettings) (w *wiring, err error) {
	w = &wiring{}
	defer func() {
		if err != nil {
			w.Close() //nolint:errcheck
			w = nil
		}
	}()

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return nil, fmt.Errorf("prompt store: %w", err)
	}

	aiServices, err := ai.Init(settings, prompts)
	if err != nil {
		return nil, err
	}
	w.onClose(func() error { aiServices.Close(); return nil })
	w.warnings = append(w.warnings, aiServices.Warnings...)

	var sqliteStore *sqlite.Store
	openSQLite := func() (*sqlite.Store, error) {
		if sqliteStore != nil {
			return sqliteStore, nil
		}
		s, err := sqlite.NewStore("")
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		w.onClose(s.Close)
		sqliteStore = s
		return s, nil
	}

	files, links, err := buildStores(settings.Storage, openSQLite, w)
	if err != nil {
		return nil, err
	}

	index, err := buildVectorIndex(ctx, settings.Vector, aiServices.EmbeddingService.Dimensions(), openSQLite, w)
	if err != nil {
		return nil, err
	}

	blobs, err := buildBlobStore(ctx, settings.Blob)
	if err != nil {
		return nil, err
	}

	cls, err := buildClassifier(settings.Classifier)
	if err != nil {
		return nil, err
	}

	registry := extractors.NewDefaultRegistry(
		extractors.WithTimeout(seconds(settings.Pipeline.ExtractTimeoutSeconds)),
	)
	chunks := chunker.New(
		chunker.WithChunkSize(settings.Chunker.MaxChars),
		chunker.WithOverlap(settings.Chunker.OverlapChars),
	)

	indexer := services.NewIndexer(aiServices.EmbeddingService, index,
		services.WithEmbedTimeout(seconds(settings.Embedding.TimeoutSeconds)),
		services.WithRateLimit(settings.Embedding.RatePerSecond),
	)
	retriever := services.NewRetriever(aiServices.EmbeddingService, index, files)

	w.pipeline = services.NewPipeline(services.PipelineDeps{
		Blobs:      blobs,
		Files:      files,
		Extractors: registry,
		Classifier: cls,
		Chunker:    chunks,
		Indexer:    indexer,
		Retriever:  retriever,
		Generator:  aiServices.AnswerGenerator,
	}, services.WithPipelineTimeout(seconds(settings.Pipeline.TimeoutSeconds)))
	w.files = services.NewFileService(files, blobs, indexer)
	w.links = services.NewLinkService(links, w.pipeline)

	logger.Debug("wired storage=%s vector=%s blob=%s embedding=%s",
		settings.Storage.Backend, settings.Vector.Backend, settings.Blob.Backend, aiServices.EmbeddingService.ModelName())
	return w, nil
}

// buildStores opens the file store and the link store, which always share
// a backend.
func buildStores(s domain.StorageSettings, openSQLite func() (*sqlite.Store, error), w *wiring) (driven.FileStore, driven.LinkStore, error) {
	switch s.Backend {
	case domain.StorageMemory:
		return memory.NewFileStore(), memory.NewLinkStore(), nil
	case domain.StoragePostgres:
		if s.PostgresDSN == "" {
			return nil, nil, fmt.Errorf("%w: storage.postgres_dsn is required for the postgres backend", domain.ErrInvalidInput)
		}
		store, err := postgres.New(s.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres store: %w", err)
		}
		w.onClose(store.Close)
		return store, store, nil
	default:
		store, err := openSQLite()
		if err != nil {
			return nil, nil, err
		}
		return store.FileStore(), store.LinkStore(), nil
	}
}

func buildVectorIndex(
	ctx context.Context,
	v domain.VectorSettings,
	dims int,
	openSQLite func() (*sqlite.Store, error),
	w *wiring,
) (driven.VectorIndex, error) {
	collection := v.Collection
	if collection == "" {
		collection = domain.DefaultCollection
	}

	switch v.Backend {
	case domain.VectorMemory:
		return memory.NewVectorIndex(dims), nil
	case domain.VectorMilvus:
		if v.MilvusAddress == "" {
			return nil, fmt.Errorf("%w: vector.milvus_address is required for the milvus backend", domain.ErrInvalidInput)
		}
		index, err := milvus.New(ctx, v.MilvusAddress, collection)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorIndexUnavailable, err)
		}
		w.onClose(index.Close)
		return index, nil
	default:
		store, err := openSQLite()
		if err != nil {
			return nil, err
		}
		return store.VectorIndex(collection), nil
	}
}

func buildBlobStore(ctx context.Context, b domain.BlobSettings) (driven.BlobStore, error) {
	if b.Backend == domain.BlobS3 {
		store, err := s3blob.New(ctx, s3blob.Options{
			Bucket:   b.S3Bucket,
			Region:   b.S3Region,
			Prefix:   b.S3Prefix,
			Endpoint: b.S3Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 blob store: %w", err)
		}
		return store, nil
	}

	store, err := filesystem.New(b.Dir)
	if err != nil {
		return nil, fmt.Errorf("filesystem blob store: %w", err)
	}
	return store, nil
}

func buildClassifier(c domain.ClassifierSettings) (*classifier.Classifier, error) {
	if c.PolicyFile == "" {
		return classifier.New(), nil
	}
	policy, err := classifier.LoadPolicy(c.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("classifier policy: %w", err)
	}
	return classifier.New(classifier.WithPolicy(policy)), nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
