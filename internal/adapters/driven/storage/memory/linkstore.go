package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
)

// Ensure LinkStore implements the interface.
var _ driven.LinkStore = (*LinkStore)(nil)

// LinkStore is an in-memory implementation of driven.LinkStore.
type LinkStore struct {
	mu    sync.Mutex
	links map[string]domain.UploadLink
}

// NewLinkStore creates a new in-memory link store.
func NewLinkStore() *LinkStore {
	return &LinkStore{links: make(map[string]domain.UploadLink)}
}

// CreateLink stores a new link.
func (s *LinkStore) CreateLink(_ context.Context, link domain.UploadLink) error {
	if strings.TrimSpace(link.Token) == "" {
		return fmt.Errorf("%w: empty link token", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.links[link.Token]; ok {
		return fmt.Errorf("%w: duplicate link token", domain.ErrInvalidInput)
	}
	s.links[link.Token] = copyLink(link)
	return nil
}

// GetLink returns a copy of the link.
func (s *LinkStore) GetLink(_ context.Context, token string) (*domain.UploadLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[token]
	if !ok {
		return nil, domain.ErrLinkNotFound
	}
	out := copyLink(link)
	return &out, nil
}

// ListLinks returns the owner's links, newest first.
func (s *LinkStore) ListLinks(_ context.Context, ownerID string) ([]domain.UploadLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.UploadLink
	for _, link := range s.links {
		if link.OwnerID == ownerID {
			out = append(out, copyLink(link))
		}
	}
	slices.SortFunc(out, func(a, b domain.UploadLink) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Token, b.Token)
	})
	return out, nil
}

// SetLinkActive pauses or resumes a link.
func (s *LinkStore) SetLinkActive(_ context.Context, token string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[token]
	if !ok {
		return domain.ErrLinkNotFound
	}
	link.Active = active
	s.links[token] = link
	return nil
}

// ReserveUpload counts one upload against a usable link.
func (s *LinkStore) ReserveUpload(_ context.Context, token string, now time.Time) (*domain.UploadLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[token]
	if !ok {
		return nil, domain.ErrLinkNotFound
	}
	if err := link.Usable(now); err != nil {
		return nil, err
	}
	link.CurrentUploads++
	s.links[token] = link
	out := copyLink(link)
	return &out, nil
}

// ReleaseUpload gives back one reservation.
func (s *LinkStore) ReleaseUpload(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[token]
	if !ok {
		return domain.ErrLinkNotFound
	}
	if link.CurrentUploads > 0 {
		link.CurrentUploads--
	}
	s.links[token] = link
	return nil
}

// DeleteLink removes a link.
func (s *LinkStore) DeleteLink(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.links, token)
	return nil
}

func copyLink(l domain.UploadLink) domain.UploadLink {
	if l.ExpiresAt != nil {
		t := *l.ExpiresAt
		l.ExpiresAt = &t
	}
	return l
}
