package domain

import (
	"fmt"
	"slices"
	"time"
)

// TextChunk is one window produced by the chunker.
type TextChunk struct {
	// Ordinal is the zero-based position within the file.
	Ordinal int

	// Text is the chunk content, including the overlap with the previous chunk.
	Text string

	// Overlap is the number of leading runes shared with the previous chunk.
	Overlap int
}

// Chunk is an embedded window of a file's text as stored in the vector index.
type Chunk struct {
	// ID is unique per file and ordinal. See ChunkID.
	ID string

	// FileID is a back-reference to the FileRecord, not an ownership edge.
	FileID FileID

	// OwnerID is denormalized from the FileRecord for filtering.
	OwnerID string

	Kind     Kind
	Ordinal  int
	Text     string
	Filename string

	// Embedding has the dimensionality of the configured model.
	Embedding []float32

	CreatedAt time.Time
}

// ChunkID returns the stable id of a file's chunk at ordinal.
// Reindexing a file produces the same ids for the same ordinals.
func ChunkID(fileID FileID, ordinal int) string {
	return fmt.Sprintf("%s_chunk_%d", fileID, ordinal)
}

// Metadata returns the payload written alongside the vector.
func (c Chunk) Metadata() map[string]any {
	return map[string]any{
		"file_id":  string(c.FileID),
		"owner_id": c.OwnerID,
		"kind":     string(c.Kind),
		"ordinal":  c.Ordinal,
		"filename": c.Filename,
	}
}

// ScoredChunk is a vector index hit.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// RetrievedChunk is a hit hydrated with its file's metadata.
type RetrievedChunk struct {
	Chunk Chunk
	File  FileRecord
	Score float64
}

// IndexReport summarizes one indexing run.
type IndexReport struct {
	FileID  FileID
	Total   int
	Indexed int
	Skipped int
}

// Partial returns true if some chunks could not be embedded.
func (r IndexReport) Partial() bool {
	return r.Skipped > 0
}

// CompareScored orders hits by score descending, then lower ordinal, then
// lower numeric file id.
func CompareScored(a, b ScoredChunk) int {
	switch {
	case a.Score > b.Score:
		return -1
	case a.Score < b.Score:
		return 1
	case a.Chunk.Ordinal != b.Chunk.Ordinal:
		if a.Chunk.Ordinal < b.Chunk.Ordinal {
			return -1
		}
		return 1
	default:
		return CompareFileIDs(a.Chunk.FileID, b.Chunk.FileID)
	}
}

// SortScored sorts hits into retrieval order.
func SortScored(hits []ScoredChunk) {
	slices.SortStableFunc(hits, CompareScored)
}
