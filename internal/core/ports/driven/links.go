package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

// LinkStore persists upload links keyed by token.
type LinkStore interface {
	// CreateLink stores a new link. Tokens are unique.
	CreateLink(ctx context.Context, link domain.UploadLink) error

	// GetLink returns domain.ErrLinkNotFound for unknown tokens.
	GetLink(ctx context.Context, token string) (*domain.UploadLink, error)

	// ListLinks returns the owner's links, newest first.
	ListLinks(ctx context.Context, ownerID string) ([]domain.UploadLink, error)

	// SetLinkActive pauses or resumes a link.
	SetLinkActive(ctx context.Context, token string, active bool) error

	// ReserveUpload atomically counts one upload against the link if it is
	// usable at now, and returns the updated link. Otherwise it returns the
	// reason from domain.UploadLink.Usable or domain.ErrLinkNotFound.
	ReserveUpload(ctx context.Context, token string, now time.Time) (*domain.UploadLink, error)

	// ReleaseUpload gives back a reservation whose upload failed.
	ReleaseUpload(ctx context.Context, token string) error

	// DeleteLink removes a link. Missing links are not an error.
	DeleteLink(ctx context.Context, token string) error
}
