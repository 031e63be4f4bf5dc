package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
)

// Ensure FileStore implements the interface.
var _ driven.FileStore = (*FileStore)(nil)

// FileStore is an in-memory implementation of driven.FileStore.
type FileStore struct {
	mu     sync.RWMutex
	nextID int64
	files  map[domain.FileID]domain.FileRecord
	now    func() time.Time
}

// NewFileStore creates a new in-memory file store.
func NewFileStore() *FileStore {
	return &FileStore{
		files: make(map[domain.FileID]domain.FileRecord),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateFileRecord stores a new record under the next sequential id.
func (s *FileStore) CreateFileRecord(_ context.Context, rec domain.NewFileRecord) (domain.FileID, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := domain.FileIDFromInt64(s.nextID)
	s.files[id] = rec.Record(id, s.now())
	return id, nil
}

// UpdateFileKind sets the classified kind.
func (s *FileStore) UpdateFileKind(_ context.Context, id domain.FileID, kind domain.Kind) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: kind %q", domain.ErrInvalidInput, kind)
	}
	return s.update(id, func(r *domain.FileRecord) {
		r.Kind = kind
	})
}

// UpdateFileStatus records the state of the last run.
func (s *FileStore) UpdateFileStatus(_ context.Context, id domain.FileID, status, failedStage domain.IngestState, chunkCount int) error {
	return s.update(id, func(r *domain.FileRecord) {
		r.Status = status
		r.FailedStage = failedStage
		if chunkCount >= 0 {
			r.ChunkCount = chunkCount
		}
	})
}

func (s *FileStore) update(id domain.FileID, fn func(*domain.FileRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.files[id]
	if !ok {
		return domain.ErrNotFound
	}
	fn(&rec)
	rec.UpdatedAt = s.now()
	s.files[id] = rec
	return nil
}

// GetFileRecord retrieves a record by id.
func (s *FileStore) GetFileRecord(_ context.Context, id domain.FileID) (*domain.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.files[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

// ListFileIDs returns the owner's ids in ascending order.
func (s *FileStore) ListFileIDs(ctx context.Context, ownerID string, kind *domain.Kind) ([]domain.FileID, error) {
	recs, err := s.ListFiles(ctx, ownerID, kind)
	if err != nil {
		return nil, err
	}
	ids := make([]domain.FileID, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	slices.SortFunc(ids, domain.CompareFileIDs)
	return ids, nil
}

// ListFiles returns the owner's records, newest first.
func (s *FileStore) ListFiles(_ context.Context, ownerID string, kind *domain.Kind) ([]domain.FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.FileRecord
	for _, r := range s.files {
		if r.OwnerID != ownerID {
			continue
		}
		if kind != nil && r.Kind != *kind {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b domain.FileRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return domain.CompareFileIDs(b.ID, a.ID)
	})
	return out, nil
}

// DeleteFileRecord removes a record.
func (s *FileStore) DeleteFileRecord(_ context.Context, id domain.FileID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, id)
	return nil
}
