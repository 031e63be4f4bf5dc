package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

const linkColumns = `token, owner_id, name, description, max_uploads, current_uploads,
	active, expires_at, created_at`

// CreateLink inserts a link.
func (s *Store) CreateLink(ctx context.Context, link domain.UploadLink) error {
	if strings.TrimSpace(link.Token) == "" {
		return fmt.Errorf("%w: empty link token", domain.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO upload_links (`+linkColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, link.Token, link.OwnerID, link.Name, link.Description, link.MaxUploads, link.CurrentUploads,
		link.Active, link.ExpiresAt, link.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("postgres insert upload link: %w", err)
	}
	return nil
}

// GetLink retrieves a link by token.
func (s *Store) GetLink(ctx context.Context, token string) (*domain.UploadLink, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM upload_links WHERE token = $1`, token)
	link, err := scanLink(row)
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// ListLinks returns the owner's links, newest first.
func (s *Store) ListLinks(ctx context.Context, ownerID string) ([]domain.UploadLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM upload_links WHERE owner_id = $1 ORDER BY created_at DESC, token`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("postgres list upload links: %w", err)
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
func (s *Store) SetLinkActive(ctx context.Context, token string, active bool) error {
	return s.execLink(ctx, `UPDATE upload_links SET active = $1 WHERE token = $2`, active, token)
}

// ReserveUpload counts one upload in a single conditional UPDATE.
func (s *Store) ReserveUpload(ctx context.Context, token string, now time.Time) (*domain.UploadLink, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE upload_links SET current_uploads = current_uploads + 1
		WHERE token = $1
			AND active
			AND (expires_at IS NULL OR expires_at > $2)
			AND (max_uploads = 0 OR current_uploads < max_uploads)
		RETURNING `+linkColumns, token, now.UTC())
	link, err := scanLink(row)
	if err == nil {
		return &link, nil
	}
	if !errors.Is(err, domain.ErrLinkNotFound) {
		return nil, err
	}

	current, err := s.GetLink(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := current.Usable(now); err != nil {
		return nil, err
	}
	return nil, domain.ErrLinkExhausted
}

// ReleaseUpload gives back one reservation.
func (s *Store) ReleaseUpload(ctx context.Context, token string) error {
	return s.execLink(ctx,
		`UPDATE upload_links SET current_uploads = GREATEST(current_uploads - 1, 0) WHERE token = $1`, token)
}

// DeleteLink removes a link.
func (s *Store) DeleteLink(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM upload_links WHERE token = $1`, token); err != nil {
		return fmt.Errorf("postgres delete upload link: %w", err)
	}
	return nil
}

func (s *Store) execLink(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres update upload link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrLinkNotFound
	}
	return nil
}

func scanLink(row rowScanner) (domain.UploadLink, error) {
	var link domain.UploadLink
	var expires sql.NullTime

	err := row.Scan(&link.Token, &link.OwnerID, &link.Name, &link.Description, &link.MaxUploads,
		&link.CurrentUploads, &link.Active, &expires, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return link, domain.ErrLinkNotFound
		}
		return link, fmt.Errorf("postgres scan upload link: %w", err)
	}
	if expires.Valid {
		t := expires.Time.UTC()
		link.ExpiresAt = &t
	}
	return link, nil
}
