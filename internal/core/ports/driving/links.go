package driving

import (
	"context"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

// LinkService manages upload links and accepts uploads through them.
type LinkService interface {
	// Create issues a new link for req.OwnerID.
	Create(ctx context.Context, req domain.NewUploadLink) (*domain.UploadLink, error)

	// List returns the owner's links, newest first.
	List(ctx context.Context, ownerID string) ([]domain.UploadLink, error)

	// Get returns domain.ErrLinkNotFound for unknown links and links of other owners.
	Get(ctx context.Context, ownerID, token string) (*domain.UploadLink, error)

	// SetActive pauses or resumes one of the owner's links.
	SetActive(ctx context.Context, ownerID, token string, active bool) (*domain.UploadLink, error)

	// Delete removes one of the owner's links.
	Delete(ctx context.Context, ownerID, token string) error

	// Resolve returns the link behind a public token if it accepts uploads.
	Resolve(ctx context.Context, token string) (*domain.UploadLink, error)

	// IngestViaLink uploads into the link owner's corpus. The caller's
	// identity is ignored; req.OwnerID is replaced by the link owner.
	IngestViaLink(ctx context.Context, token string, req domain.IngestRequest) (*domain.IngestResult, error)
}
