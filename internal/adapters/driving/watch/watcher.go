// Package watch keeps a local folder ingested: files that appear are
// uploaded, changed files are replaced and removed files are deleted.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/custodia-labs/grabdocs/internal/connectors/filesystem"
	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driving"
	"github.com/custodia-labs/grabdocs/internal/logger"
	"github.com/custodia-labs/grabdocs/internal/workers"
)

// DefaultDebounce is how long a path must stay quiet before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// Source lists and watches the folder.
type Source interface {
	Root() string
	Scan(ctx context.Context) ([]string, error)
	Watch(ctx context.Context) (<-chan filesystem.Change, error)
	Close() error
}

// ResultFunc observes every processed path. res is nil for deletions.
type ResultFunc func(path string, res *domain.IngestResult, err error)

// Watcher mirrors a folder into an owner's files.
type Watcher struct {
	source   Source
	ingest   driving.IngestService
	files    driving.FileService
	owner    string
	pool     *workers.Pool
	debounce time.Duration
	onResult ResultFunc
	log      logger.Logger

	mu      sync.Mutex
	tracked map[string]domain.FileID
	pending map[string]*time.Timer
	// seq numbers jobs per path in submission order; applied is the
	// newest one whose outcome has been recorded.
	seq     map[string]uint64
	applied map[string]uint64
}

type job func(ctx context.Context, path string, seq uint64)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a changed path is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithResultFunc registers an observer for processed paths.
func WithResultFunc(fn ResultFunc) Option {
	return func(w *Watcher) { w.onResult = fn }
}

// New creates a watcher. Jobs run on pool, which the caller releases.
func New(source Source, ingest driving.IngestService, files driving.FileService, owner string, pool *workers.Pool, opts ...Option) (*Watcher, error) {
	switch {
	case source == nil:
		return nil, errors.New("watch: source is required")
	case ingest == nil || files == nil:
		return nil, errors.New("watch: ingest and file services are required")
	case pool == nil:
		return nil, errors.New("watch: worker pool is required")
	case owner == "":
		return nil, domain.ErrOwnerRequired
	}

	w := &Watcher{
		source:   source,
		ingest:   ingest,
		files:    files,
		owner:    owner,
		pool:     pool,
		debounce: DefaultDebounce,
		onResult: func(string, *domain.IngestResult, error) {},
		log:      logger.With("watch"),
		tracked:  make(map[string]domain.FileID),
		pending:  make(map[string]*time.Timer),
		seq:      make(map[string]uint64),
		applied:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run ingests every existing file, then follows changes until ctx is done.
// Jobs already started are allowed to finish before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	logger.Section("Watch " + w.source.Root())

	paths, err := w.source.Scan(ctx)
	if err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}
	w.log.Info("ingesting %d existing files", len(paths))
	for _, path := range paths {
		w.submit(ctx, path, w.upsert)
	}

	changes, err := w.source.Watch(ctx)
	if err != nil {
		w.pool.Wait()
		return fmt.Errorf("watch: %w", err)
	}
	defer w.source.Close() //nolint:errcheck

	for change := range changes {
		w.handle(ctx, change)
	}

	w.stopTimers()
	w.pool.Wait()
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// Tracked returns the file id a path was last ingested as.
func (w *Watcher) Tracked(path string) (domain.FileID, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.tracked[path]
	return id, ok
}

func (w *Watcher) handle(ctx context.Context, change filesystem.Change) {
	w.log.Debug("%s %s", change.Type, change.Path)

	w.mu.Lock()
	if t, ok := w.pending[change.Path]; ok {
		t.Stop()
		delete(w.pending, change.Path)
	}
	if change.Type == filesystem.ChangeDeleted {
		w.mu.Unlock()
		w.submit(ctx, change.Path, w.remove)
		return
	}
	path := change.Path
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.submit(ctx, path, w.upsert)
	})
	w.mu.Unlock()
}

func (w *Watcher) submit(ctx context.Context, path string, fn job) {
	w.mu.Lock()
	w.seq[path]++
	n := w.seq[path]
	w.mu.Unlock()

	if err := w.pool.Submit(func() { fn(ctx, path, n) }); err != nil {
		w.log.Warn("drop %s: %v", path, err)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// upsert ingests path, replacing the file it was previously ingested as.
// A result that finishes after a newer job for the same path is discarded.
func (w *Watcher) upsert(ctx context.Context, path string, seq uint64) {
	res, err := IngestFile(ctx, w.ingest, w.owner, path)
	if err != nil {
		w.log.Warn("ingest %s: %v", path, err)
		w.onResult(path, nil, err)
		return
	}

	w.mu.Lock()
	if w.applied[path] > seq {
		current := w.tracked[path]
		w.mu.Unlock()
		w.discard(ctx, path, res.FileID, current)
		return
	}
	w.applied[path] = seq
	old, had := w.tracked[path]
	w.tracked[path] = res.FileID
	w.mu.Unlock()

	if had && old != res.FileID {
		if err := w.files.Delete(ctx, w.owner, old); err != nil && !errors.Is(err, domain.ErrNotFound) {
			w.log.Warn("remove previous version of %s: %v", path, err)
		}
	}
	w.log.Info("%s -> file %s (%s, %s)", filepath.Base(path), res.FileID, res.Kind, res.State)
	w.onResult(path, res, nil)
}

// discard deletes a stale ingest of path unless it deduplicated onto the
// file currently tracked.
func (w *Watcher) discard(ctx context.Context, path string, stale, current domain.FileID) {
	w.log.Debug("%s: superseded result file %s", filepath.Base(path), stale)
	if stale == current {
		return
	}
	if err := w.files.Delete(ctx, w.owner, stale); err != nil && !errors.Is(err, domain.ErrNotFound) {
		w.log.Warn("remove superseded version of %s: %v", path, err)
	}
}

func (w *Watcher) remove(ctx context.Context, path string, seq uint64) {
	w.mu.Lock()
	if w.applied[path] > seq {
		w.mu.Unlock()
		return
	}
	w.applied[path] = seq
	id, ok := w.tracked[path]
	delete(w.tracked, path)
	w.mu.Unlock()
	if !ok {
		return
	}

	err := w.files.Delete(ctx, w.owner, id)
	if errors.Is(err, domain.ErrNotFound) {
		err = nil
	}
	if err != nil {
		w.log.Warn("delete %s: %v", path, err)
	} else {
		w.log.Info("%s removed (file %s)", filepath.Base(path), id)
	}
	w.onResult(path, nil, err)
}

// IngestFile uploads one local file for owner.
func IngestFile(ctx context.Context, svc driving.IngestService, owner, path string) (*domain.IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return svc.Ingest(ctx, domain.IngestRequest{
		OwnerID:  owner,
		Blob:     data,
		Filename: filepath.Base(path),
	})
}
