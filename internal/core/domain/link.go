package domain

import (
	"fmt"
	"strings"
	"time"
)

// Upload link defaults.
const (
	// DefaultMaxUploads applies when a link is created without a limit.
	// Zero means the link accepts any number of uploads.
	DefaultMaxUploads = 0

	// MaxLinkExpiryDays bounds ExpiresInDays.
	MaxLinkExpiryDays = 365
)

// UploadLink lets anyone holding Token upload files into OwnerID's corpus.
type UploadLink struct {
	// Token is the unguessable public part of the link URL.
	Token string

	OwnerID     string
	Name        string
	Description string

	// MaxUploads caps CurrentUploads. Zero means unlimited.
	MaxUploads int

	// CurrentUploads counts uploads accepted through the link.
	CurrentUploads int

	// Active links accept uploads. Owners may pause a link.
	Active bool

	// ExpiresAt is nil for links that never expire.
	ExpiresAt *time.Time

	CreatedAt time.Time
}

// Expired reports whether the link expired at or before now.
func (l *UploadLink) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// Exhausted reports whether the upload limit is reached.
func (l *UploadLink) Exhausted() bool {
	return l.MaxUploads > 0 && l.CurrentUploads >= l.MaxUploads
}

// Remaining returns how many uploads the link still accepts, or -1 if unlimited.
func (l *UploadLink) Remaining() int {
	if l.MaxUploads == 0 {
		return -1
	}
	return max(l.MaxUploads-l.CurrentUploads, 0)
}

// Usable returns nil if the link accepts an upload at now, otherwise
// ErrLinkInactive, ErrLinkExpired or ErrLinkExhausted.
func (l *UploadLink) Usable(now time.Time) error {
	switch {
	case !l.Active:
		return ErrLinkInactive
	case l.Expired(now):
		return ErrLinkExpired
	case l.Exhausted():
		return ErrLinkExhausted
	default:
		return nil
	}
}

// NewUploadLink holds the fields needed to create an UploadLink.
// Nil optional fields take their defaults.
type NewUploadLink struct {
	OwnerID     string
	Name        string
	Description string

	// MaxUploads defaults to DefaultMaxUploads.
	MaxUploads *int

	// ExpiresInDays defaults to no expiry.
	ExpiresInDays *int
}

// Validate checks the caller-supplied fields.
func (n NewUploadLink) Validate() error {
	if strings.TrimSpace(n.OwnerID) == "" {
		return ErrOwnerRequired
	}
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("%w: link name is required", ErrInvalidInput)
	}
	if n.MaxUploads != nil && *n.MaxUploads <= 0 {
		return fmt.Errorf("%w: max_uploads must be positive, got %d", ErrInvalidInput, *n.MaxUploads)
	}
	if n.ExpiresInDays != nil && (*n.ExpiresInDays <= 0 || *n.ExpiresInDays > MaxLinkExpiryDays) {
		return fmt.Errorf("%w: expires_in_days must be between 1 and %d, got %d", ErrInvalidInput, MaxLinkExpiryDays, *n.ExpiresInDays)
	}
	return nil
}

// Link builds the initial UploadLink with explicit defaults applied.
func (n NewUploadLink) Link(token string, now time.Time) UploadLink {
	link := UploadLink{
		Token:          token,
		OwnerID:        strings.TrimSpace(n.OwnerID),
		Name:           strings.TrimSpace(n.Name),
		Description:    strings.TrimSpace(n.Description),
		MaxUploads:     DefaultMaxUploads,
		CurrentUploads: 0,
		Active:         true,
		CreatedAt:      now,
	}
	if n.MaxUploads != nil {
		link.MaxUploads = *n.MaxUploads
	}
	if n.ExpiresInDays != nil {
		expires := now.AddDate(0, 0, *n.ExpiresInDays)
		link.ExpiresAt = &expires
	}
	return link
}
