package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/grabdocs/internal/adapters/driven/vector"
	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
)

// ==================== Vector Index ====================

// vectorIndex implements driven.VectorIndex over the chunks table.
// Several collections share the table, keyed by the collection column.
type vectorIndex struct {
	store      *Store
	collection string
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// ReplaceFile deletes the file's chunks and inserts the new set in one transaction.
func (v *vectorIndex) ReplaceFile(ctx context.Context, fileID domain.FileID, chunks []domain.Chunk) error {
	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	dims, err := collectionDimensions(ctx, tx, v.collection)
	if err != nil {
		return err
	}
	newDims, err := vector.CheckDimensions(dims, chunks)
	if err != nil {
		return fmt.Errorf("collection %s has %d dimensions: %w", v.collection, dims, err)
	}
	if dims == 0 && newDims > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO collections (name, dimensions) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET dimensions = excluded.dimensions WHERE dimensions = 0
		`, v.collection, newDims); err != nil {
			return fmt.Errorf("fixing collection dimensions: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE collection = ? AND file_id = ?`, v.collection, string(fileID)); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (collection, id, file_id, owner_id, kind, ordinal, filename, content,
			embedding, dims, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range chunks {
		if c.FileID != fileID {
			return fmt.Errorf("%w: chunk %s belongs to file %s", domain.ErrInvalidInput, c.ID, c.FileID)
		}
		id := c.ID
		if id == "" {
			id = domain.ChunkID(c.FileID, c.Ordinal)
		}
		created := c.CreatedAt
		if created.IsZero() {
			created = now
		}
		if _, err := stmt.ExecContext(ctx, v.collection, id, string(c.FileID), c.OwnerID, string(c.Kind),
			c.Ordinal, c.Filename, c.Text, float32SliceToBytes(c.Embedding), len(c.Embedding), created); err != nil {
			return fmt.Errorf("saving chunk %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteFile removes every chunk of the file.
func (v *vectorIndex) DeleteFile(ctx context.Context, fileID domain.FileID) error {
	if _, err := v.store.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE collection = ? AND file_id = ?`, v.collection, string(fileID)); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// Search pushes the metadata filter into SQL and scores the survivors in Go.
func (v *vectorIndex) Search(ctx context.Context, query []float32, filter domain.VectorFilter, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	if dims := v.Dimensions(); dims > 0 && len(query) != dims {
		return nil, fmt.Errorf("query has %d dimensions, collection %d: %w", len(query), dims, domain.ErrDimensionMismatch)
	}

	q := `SELECT id, file_id, owner_id, kind, ordinal, filename, content, embedding, created_at
		FROM chunks WHERE collection = ? AND owner_id = ?`
	args := []any{v.collection, filter.OwnerID}
	if len(filter.FileIDs) > 0 {
		q += ` AND file_id IN (` + placeholders(len(filter.FileIDs)) + `)`
		for _, id := range filter.FileIDs {
			args = append(args, string(id))
		}
	}
	if filter.Kind != nil {
		q += ` AND kind = ?`
		args = append(args, string(*filter.Kind))
	}

	rows, err := v.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []domain.ScoredChunk
	for rows.Next() {
		var c domain.Chunk
		var fileID, kind string
		var blob []byte
		if err := rows.Scan(&c.ID, &fileID, &c.OwnerID, &kind, &c.Ordinal, &c.Filename,
			&c.Text, &blob, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.FileID = domain.FileID(fileID)
		c.Kind = domain.Kind(kind)
		c.Embedding = bytesToFloat32Slice(blob)
		hits = append(hits, domain.ScoredChunk{Chunk: c, Score: vector.Cosine(query, c.Embedding)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return vector.TopK(hits, k), nil
}

// CountFile returns the number of chunks stored for the file.
func (v *vectorIndex) CountFile(ctx context.Context, fileID domain.FileID) (int, error) {
	var n int
	err := v.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE collection = ? AND file_id = ?`, v.collection, string(fileID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Dimensions returns the fixed vector size, or 0 for an empty collection.
func (v *vectorIndex) Dimensions() int {
	var dims int
	err := v.store.db.QueryRow(`SELECT dimensions FROM collections WHERE name = ?`, v.collection).Scan(&dims)
	if err != nil {
		return 0
	}
	return dims
}

// Model returns the embedding model recorded for the collection.
func (v *vectorIndex) Model() string {
	var model string
	err := v.store.db.QueryRow(`SELECT model FROM collections WHERE name = ?`, v.collection).Scan(&model)
	if err != nil {
		return ""
	}
	return model
}

// BindModel records model on the collection row, creating the row with
// unfixed dimensions when the collection is new.
func (v *vectorIndex) BindModel(ctx context.Context, model string) error {
	if model == "" {
		return nil
	}
	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var current string
	err = tx.QueryRowContext(ctx, `SELECT model FROM collections WHERE name = ?`, v.collection).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO collections (name, dimensions, model) VALUES (?, 0, ?)`, v.collection, model); err != nil {
			return fmt.Errorf("recording collection model: %w", err)
		}
	case err != nil:
		return fmt.Errorf("reading collection model: %w", err)
	case current == model:
		return nil
	case current != "":
		return fmt.Errorf("collection %s was built with %s, not %s: %w", v.collection, current, model, domain.ErrModelMismatch)
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE collections SET model = ? WHERE name = ?`, model, v.collection); err != nil {
			return fmt.Errorf("recording collection model: %w", err)
		}
	}
	return tx.Commit()
}

// Close is a no-op. The Store owns the connection.
func (v *vectorIndex) Close() error {
	return nil
}

func collectionDimensions(ctx context.Context, tx *sql.Tx, name string) (int, error) {
	var dims int
	err := tx.QueryRowContext(ctx, `SELECT dimensions FROM collections WHERE name = ?`, name).Scan(&dims)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading collection dimensions: %w", err)
	}
	return dims, nil
}
