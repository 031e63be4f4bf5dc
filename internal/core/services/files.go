package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driving"
	"github.com/custodia-labs/grabdocs/internal/logger"
)

// Ensure FileService implements the interface.
var _ driving.FileService = (*FileService)(nil)

// FileService lists, inspects and removes an owner's files.
type FileService struct {
	files   driven.FileStore
	blobs   driven.BlobStore
	indexer *Indexer
	log     logger.Logger
}

// NewFileService creates a file service. Deletion goes through the
// indexer so it is serialized with indexing of the same file.
func NewFileService(files driven.FileStore, blobs driven.BlobStore, indexer *Indexer) *FileService {
	return &FileService{
		files:   files,
		blobs:   blobs,
		indexer: indexer,
		log:     logger.With("files"),
	}
}

// List returns the owner's files of the kind named by kindToken, newest first.
func (s *FileService) List(ctx context.Context, ownerID, kindToken string) ([]domain.FileRecord, error) {
	owner := strings.TrimSpace(ownerID)
	if owner == "" {
		return nil, domain.ErrOwnerRequired
	}
	kind, err := domain.ParseKindFilter(kindToken)
	if err != nil {
		return nil, err
	}

	records, err := s.files.ListFiles(ctx, owner, kind)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	if records == nil {
		records = []domain.FileRecord{}
	}
	return records, nil
}

// Get returns one of the owner's files.
func (s *FileService) Get(ctx context.Context, ownerID string, fileID domain.FileID) (*domain.FileRecord, error) {
	return loadOwned(ctx, s.files, ownerID, fileID)
}

// Delete removes the file's index entries, then its blob, then its record.
func (s *FileService) Delete(ctx context.Context, ownerID string, fileID domain.FileID) error {
	rec, err := loadOwned(ctx, s.files, ownerID, fileID)
	if err != nil {
		return err
	}

	if err := s.indexer.DeleteFile(ctx, rec.ID); err != nil {
		return fmt.Errorf("delete file %s: %w", rec.ID, err)
	}
	if rec.StoredFilename != "" {
		if err := s.blobs.Delete(ctx, rec.StoredFilename); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete blob of file %s: %w", rec.ID, err)
		}
	}
	if err := s.files.DeleteFileRecord(ctx, rec.ID); err != nil {
		return fmt.Errorf("delete record of file %s: %w", rec.ID, err)
	}

	s.log.Info("deleted file %s (%s)", rec.ID, rec.OriginalFilename)
	return nil
}

// Categories counts the owner's files per kind. Every kind is present.
func (s *FileService) Categories(ctx context.Context, ownerID string) (map[domain.Kind]int, error) {
	records, err := s.List(ctx, ownerID, "")
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.Kind]int, len(domain.AllKinds()))
	for _, k := range domain.AllKinds() {
		counts[k] = 0
	}
	for _, r := range records {
		counts[r.Kind]++
	}
	return counts, nil
}
