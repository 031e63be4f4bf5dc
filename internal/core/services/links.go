package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driving"
	"github.com/custodia-labs/grabdocs/internal/logger"
)

// Ensure LinkService implements the interface.
var _ driving.LinkService = (*LinkService)(nil)

// LinkService issues upload links and routes uploads made through them
// into the owner's pipeline.
type LinkService struct {
	links    driven.LinkStore
	ingest   driving.IngestService
	now      func() time.Time
	newToken func() string
	log      logger.Logger
}

// LinkOption configures a LinkService.
type LinkOption func(*LinkService)

// WithLinkClock replaces time.Now for expiry checks.
func WithLinkClock(now func() time.Time) LinkOption {
	return func(s *LinkService) {
		s.now = now
	}
}

// WithTokenGenerator replaces the random token source.
func WithTokenGenerator(fn func() string) LinkOption {
	return func(s *LinkService) {
		s.newToken = fn
	}
}

// NewLinkService creates a link service over links that hands uploads to ingest.
func NewLinkService(links driven.LinkStore, ingest driving.IngestService, opts ...LinkOption) *LinkService {
	s := &LinkService{
		links:    links,
		ingest:   ingest,
		now:      func() time.Time { return time.Now().UTC() },
		newToken: newLinkToken,
		log:      logger.With("links"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newLinkToken returns 32 hex characters from a random UUID.
func newLinkToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create issues a new link.
func (s *LinkService) Create(ctx context.Context, req domain.NewUploadLink) (*domain.UploadLink, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	link := req.Link(s.newToken(), s.now())
	if err := s.links.CreateLink(ctx, link); err != nil {
		return nil, fmt.Errorf("create upload link: %w", err)
	}
	s.log.Info("owner=%s created upload link %q (max_uploads=%d)", link.OwnerID, link.Name, link.MaxUploads)
	return &link, nil
}

// List returns the owner's links, newest first.
func (s *LinkService) List(ctx context.Context, ownerID string) ([]domain.UploadLink, error) {
	owner := strings.TrimSpace(ownerID)
	if owner == "" {
		return nil, domain.ErrOwnerRequired
	}
	links, err := s.links.ListLinks(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list upload links: %w", err)
	}
	if links == nil {
		links = []domain.UploadLink{}
	}
	return links, nil
}

// Get returns one of the owner's links.
func (s *LinkService) Get(ctx context.Context, ownerID, token string) (*domain.UploadLink, error) {
	owner := strings.TrimSpace(ownerID)
	if owner == "" {
		return nil, domain.ErrOwnerRequired
	}
	link, err := s.links.GetLink(ctx, token)
	if err != nil {
		return nil, err
	}
	if link.OwnerID != owner {
		return nil, domain.ErrLinkNotFound
	}
	return link, nil
}

// SetActive pauses or resumes one of the owner's links.
func (s *LinkService) SetActive(ctx context.Context, ownerID, token string, active bool) (*domain.UploadLink, error) {
	link, err := s.Get(ctx, ownerID, token)
	if err != nil {
		return nil, err
	}
	if err := s.links.SetLinkActive(ctx, link.Token, active); err != nil {
		return nil, fmt.Errorf("update upload link: %w", err)
	}
	link.Active = active
	return link, nil
}

// Delete removes one of the owner's links. Files uploaded through it stay.
func (s *LinkService) Delete(ctx context.Context, ownerID, token string) error {
	link, err := s.Get(ctx, ownerID, token)
	if err != nil {
		return err
	}
	if err := s.links.DeleteLink(ctx, link.Token); err != nil {
		return fmt.Errorf("delete upload link: %w", err)
	}
	s.log.Info("owner=%s deleted upload link %q", link.OwnerID, link.Name)
	return nil
}

// Resolve returns a link that currently accepts uploads.
func (s *LinkService) Resolve(ctx context.Context, token string) (*domain.UploadLink, error) {
	link, err := s.links.GetLink(ctx, strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	if err := link.Usable(s.now()); err != nil {
		return nil, err
	}
	return link, nil
}

// IngestViaLink reserves one upload on the link and ingests req into the
// link owner's corpus. The reservation is given back if ingestion fails
// before a file record exists.
func (s *LinkService) IngestViaLink(ctx context.Context, token string, req domain.IngestRequest) (*domain.IngestResult, error) {
	token = strings.TrimSpace(token)
	link, err := s.links.ReserveUpload(ctx, token, s.now())
	if err != nil {
		return nil, err
	}

	req.OwnerID = link.OwnerID
	s.log.Debug("link %q: upload %d for owner=%s", link.Name, link.CurrentUploads, link.OwnerID)

	res, err := s.ingest.Ingest(ctx, req)
	if err != nil {
		if relErr := s.links.ReleaseUpload(context.WithoutCancel(ctx), token); relErr != nil {
			s.log.Warn("link %q: release reservation: %v", link.Name, relErr)
		}
		return nil, err
	}
	return res, nil
}
