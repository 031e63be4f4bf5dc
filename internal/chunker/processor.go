package chunker

import (
	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of runes per chunk.
const DefaultChunkSize = domain.DefaultChunkMaxChars

// DefaultChunkOverlap is the default number of overlapping runes.
const DefaultChunkOverlap = domain.DefaultChunkOverlapChars

// Verify interface compliance.
var _ driven.Chunker = (*Processor)(nil)

// Processor chunks text with configured window sizes.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in runes.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in runes.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.chunkSize, p.overlap = normalize(p.chunkSize, p.overlap)
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured window size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Split returns the lazy chunk sequence of text.
func (p *Processor) Split(text string) Sequence {
	return Split(text, p.chunkSize, p.overlap)
}

// Chunk returns all chunks of text.
func (p *Processor) Chunk(text string) []domain.TextChunk {
	return p.Split(text).Collect()
}
