package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
)

// ==================== File Store ====================

// fileStore implements driven.FileStore.
type fileStore struct {
	store *Store
}

var _ driven.FileStore = (*fileStore)(nil)

const fileColumns = `id, owner_id, original_filename, stored_filename, mime_type, size_bytes,
	kind, chunk_count, status, failed_stage, created_at, updated_at`

// CreateFileRecord inserts a record and returns its allocated id.
func (s *fileStore) CreateFileRecord(ctx context.Context, rec domain.NewFileRecord) (domain.FileID, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO files (owner_id, original_filename, stored_filename, mime_type, size_bytes,
			kind, chunk_count, status, failed_stage, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, '', ?, ?)
	`, rec.OwnerID, rec.OriginalFilename, rec.StoredFilename, rec.MIMEType, rec.SizeBytes,
		string(domain.KindUnknown), string(domain.StateReceived), now, now)
	if err != nil {
		return "", fmt.Errorf("inserting file: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("reading file id: %w", err)
	}
	return domain.FileIDFromInt64(id), nil
}

// UpdateFileKind sets the classified kind.
func (s *fileStore) UpdateFileKind(ctx context.Context, id domain.FileID, kind domain.Kind) error {
	if !kind.IsValid() {
		return fmt.Errorf("%w: kind %q", domain.ErrInvalidInput, kind)
	}
	return s.update(ctx, id, `UPDATE files SET kind = ?, updated_at = ? WHERE id = ?`,
		string(kind), time.Now().UTC(), id.Int64())
}

// UpdateFileStatus records the state reached by the last run.
func (s *fileStore) UpdateFileStatus(ctx context.Context, id domain.FileID, status, failedStage domain.IngestState, chunkCount int) error {
	now := time.Now().UTC()
	if chunkCount < 0 {
		return s.update(ctx, id, `UPDATE files SET status = ?, failed_stage = ?, updated_at = ? WHERE id = ?`,
			string(status), string(failedStage), now, id.Int64())
	}
	return s.update(ctx, id,
		`UPDATE files SET status = ?, failed_stage = ?, chunk_count = ?, updated_at = ? WHERE id = ?`,
		string(status), string(failedStage), chunkCount, now, id.Int64())
}

func (s *fileStore) update(ctx context.Context, id domain.FileID, query string, args ...any) error {
	if id.Int64() <= 0 {
		return domain.ErrNotFound
	}
	res, err := s.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating file %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetFileRecord retrieves a record by id.
func (s *fileStore) GetFileRecord(ctx context.Context, id domain.FileID) (*domain.FileRecord, error) {
	if id.Int64() <= 0 {
		return nil, domain.ErrNotFound
	}
	row := s.store.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE id = ?`, id.Int64())
	rec, err := scanFile(row)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListFileIDs returns the owner's file ids in ascending order.
func (s *fileStore) ListFileIDs(ctx context.Context, ownerID string, kind *domain.Kind) ([]domain.FileID, error) {
	query := `SELECT id FROM files WHERE owner_id = ?`
	args := []any{ownerID}
	if kind != nil {
		query += ` AND kind = ?`
		args = append(args, string(*kind))
	}
	query += ` ORDER BY id`

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing file ids: %w", err)
	}
	defer rows.Close()

	var ids []domain.FileID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning file id: %w", err)
		}
		ids = append(ids, domain.FileIDFromInt64(id))
	}
	return ids, rows.Err()
}

// ListFiles returns the owner's records, newest first.
func (s *fileStore) ListFiles(ctx context.Context, ownerID string, kind *domain.Kind) ([]domain.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE owner_id = ?`
	args := []any{ownerID}
	if kind != nil {
		query += ` AND kind = ?`
		args = append(args, string(*kind))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	defer rows.Close()

	var files []domain.FileRecord
	for rows.Next() {
		rec, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, rec)
	}
	return files, rows.Err()
}

// DeleteFileRecord removes a record.
func (s *fileStore) DeleteFileRecord(ctx context.Context, id domain.FileID) error {
	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id.Int64()); err != nil {
		return fmt.Errorf("deleting file %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanFile scans a single files row.
func scanFile(row rowScanner) (domain.FileRecord, error) {
	var rec domain.FileRecord
	var id int64
	var kind, status, failedStage string

	err := row.Scan(&id, &rec.OwnerID, &rec.OriginalFilename, &rec.StoredFilename, &rec.MIMEType,
		&rec.SizeBytes, &kind, &rec.ChunkCount, &status, &failedStage, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, domain.ErrNotFound
		}
		return rec, fmt.Errorf("scanning file: %w", err)
	}

	rec.ID = domain.FileIDFromInt64(id)
	rec.Kind = domain.Kind(kind)
	rec.Status = domain.IngestState(status)
	rec.FailedStage = domain.IngestState(failedStage)
	return rec, nil
}
