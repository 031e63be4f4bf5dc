package driven

import "github.com/custodia-labs/grabdocs/internal/core/domain"

// Classifier assigns a Kind from extracted text and the filename.
// It never fails: inputs without signal classify as domain.KindUnknown.
type Classifier interface {
	Classify(text, filename string) domain.Kind
}

// Chunker splits text into overlapping windows.
type Chunker interface {
	// Chunk returns the windows of text in ordinal order.
	Chunk(text string) []domain.TextChunk
}
