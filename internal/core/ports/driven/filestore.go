package driven

import (
	"context"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

// FileStore persists FileRecords. Stores allocate sequential integer ids
// and always return them in canonical form.
type FileStore interface {
	// CreateFileRecord stores a new record with kind unknown and state received.
	CreateFileRecord(ctx context.Context, rec domain.NewFileRecord) (domain.FileID, error)

	// UpdateFileKind sets the classified kind. Only canonical kinds are accepted.
	UpdateFileKind(ctx context.Context, id domain.FileID, kind domain.Kind) error

	// UpdateFileStatus records the pipeline state of the last run.
	// A negative chunkCount leaves the stored count unchanged.
	UpdateFileStatus(ctx context.Context, id domain.FileID, status, failedStage domain.IngestState, chunkCount int) error

	// GetFileRecord returns domain.ErrNotFound if the id does not exist.
	GetFileRecord(ctx context.Context, id domain.FileID) (*domain.FileRecord, error)

	// ListFileIDs returns the owner's file ids, optionally restricted to a kind.
	ListFileIDs(ctx context.Context, ownerID string, kind *domain.Kind) ([]domain.FileID, error)

	// ListFiles returns the owner's records, newest first.
	ListFiles(ctx context.Context, ownerID string, kind *domain.Kind) ([]domain.FileRecord, error)

	// DeleteFileRecord removes a record. Missing records are not an error.
	DeleteFileRecord(ctx context.Context, id domain.FileID) error
}

// KeepChunkCount passed to UpdateFileStatus leaves the stored count as is.
const KeepChunkCount = -1
