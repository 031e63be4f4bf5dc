package driving

import (
	"context"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

// FileService exposes an owner's files by category.
type FileService interface {
	// List returns the owner's files. kindToken goes through the kind
	// mapping table; empty or "all" lists everything.
	List(ctx context.Context, ownerID, kindToken string) ([]domain.FileRecord, error)

	// Get returns domain.ErrNotFound for missing files and files of other owners.
	Get(ctx context.Context, ownerID string, fileID domain.FileID) (*domain.FileRecord, error)

	// Delete removes index entries, blob and record.
	Delete(ctx context.Context, ownerID string, fileID domain.FileID) error

	// Categories counts the owner's files per kind.
	Categories(ctx context.Context, ownerID string) (map[domain.Kind]int, error)
}
