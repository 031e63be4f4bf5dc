package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
)

// ==================== Link Store ====================

// linkStore implements driven.LinkStore.
type linkStore struct {
	store *Store
}

var _ driven.LinkStore = (*linkStore)(nil)

const linkColumns = `token, owner_id, name, description, max_uploads, current_uploads,
	active, expires_at, created_at`

// CreateLink inserts a link.
func (s *linkStore) CreateLink(ctx context.Context, link domain.UploadLink) error {
	if strings.TrimSpace(link.Token) == "" {
		return fmt.Errorf("%w: empty link token", domain.ErrInvalidInput)
	}

	var expires sql.NullInt64
	if link.ExpiresAt != nil {
		expires = sql.NullInt64{Int64: link.ExpiresAt.Unix(), Valid: true}
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO upload_links (`+linkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, link.Token, link.OwnerID, link.Name, link.Description, link.MaxUploads, link.CurrentUploads,
		link.Active, expires, link.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("inserting upload link: %w", err)
	}
	return nil
}

// GetLink retrieves a link by token.
func (s *linkStore) GetLink(ctx context.Context, token string) (*domain.UploadLink, error) {
	row := s.store.db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM upload_links WHERE token = ?`, token)
	link, err := scanLink(row)
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// ListLinks returns the owner's links, newest first.
func (s *linkStore) ListLinks(ctx context.Context, ownerID string) ([]domain.UploadLink, error) {
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM upload_links WHERE owner_id = ? ORDER BY created_at DESC, token`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing upload links: %w", err)
	}
	defer rows.Close()

	var links []domain.UploadLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// SetLinkActive pauses or resumes a link.
func (s *linkStore) SetLinkActive(ctx context.Context, token string, active bool) error {
	res, err := s.store.db.ExecContext(ctx, `UPDATE upload_links SET active = ? WHERE token = ?`, active, token)
	if err != nil {
		return fmt.Errorf("updating upload link: %w", err)
	}
	return requireRow(res)
}

// ReserveUpload increments current_uploads in one conditional UPDATE so
// concurrent uploads can never overshoot max_uploads.
func (s *linkStore) ReserveUpload(ctx context.Context, token string, now time.Time) (*domain.UploadLink, error) {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE upload_links SET current_uploads = current_uploads + 1
		WHERE token = ?
			AND active = 1
			AND (expires_at IS NULL OR expires_at > ?)
			AND (max_uploads = 0 OR current_uploads < max_uploads)
	`, token, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("reserving upload: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking reservation: %w", err)
	}

	link, err := s.GetLink(ctx, token)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if err := link.Usable(now); err != nil {
			return nil, err
		}
		// Lost a race for the last slot.
		return nil, domain.ErrLinkExhausted
	}
	return link, nil
}

// ReleaseUpload gives back one reservation.
func (s *linkStore) ReleaseUpload(ctx context.Context, token string) error {
	res, err := s.store.db.ExecContext(ctx,
		`UPDATE upload_links SET current_uploads = MAX(current_uploads - 1, 0) WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("releasing upload: %w", err)
	}
	return requireRow(res)
}

// DeleteLink removes a link.
func (s *linkStore) DeleteLink(ctx context.Context, token string) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM upload_links WHERE token = ?`, token); err != nil {
		return fmt.Errorf("deleting upload link: %w", err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if n == 0 {
		return domain.ErrLinkNotFound
	}
	return nil
}

// scanLink scans a single upload_links row.
func scanLink(row rowScanner) (domain.UploadLink, error) {
	var link domain.UploadLink
	var expires sql.NullInt64

	err := row.Scan(&link.Token, &link.OwnerID, &link.Name, &link.Description, &link.MaxUploads,
		&link.CurrentUploads, &link.Active, &expires, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return link, domain.ErrLinkNotFound
		}
		return link, fmt.Errorf("scanning upload link: %w", err)
	}

	if expires.Valid {
		t := time.Unix(expires.Int64, 0).UTC()
		link.ExpiresAt = &t
	}
	return link, nil
}
