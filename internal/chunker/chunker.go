// Package chunker splits extracted text into overlapping windows.
//
// Windows are measured in runes, so a UTF-8 sequence is never split.
// Every chunk after the first repeats the last overlap runes of its
// predecessor; dropping that prefix and concatenating the chunks in
// ordinal order gives back the original text.
package chunker

import (
	"iter"
	"strings"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

// Sequence is a lazy, finite, restartable sequence of chunks.
// Ranging over All twice walks the text twice from the start.
type Sequence struct {
	runes    []rune
	maxChars int
	overlap  int
}

// Split returns the chunk sequence of text. A non-positive maxChars falls
// back to DefaultChunkSize; an overlap that is negative becomes 0 and one
// that reaches maxChars is clamped to maxChars/4.
func Split(text string, maxChars, overlapChars int) Sequence {
	maxChars, overlapChars = normalize(maxChars, overlapChars)
	return Sequence{
		runes:    []rune(text),
		maxChars: maxChars,
		overlap:  overlapChars,
	}
}

func normalize(maxChars, overlap int) (int, int) {
	if maxChars <= 0 {
		maxChars = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChars {
		overlap = maxChars / 4
	}
	return maxChars, overlap
}

// All yields chunks in ordinal order.
func (s Sequence) All() iter.Seq[domain.TextChunk] {
	return func(yield func(domain.TextChunk) bool) {
		n := len(s.runes)
		if n == 0 {
			return
		}

		start, ordinal := 0, 0
		for {
			end := min(start+s.maxChars, n)
			overlap := 0
			if ordinal > 0 {
				overlap = s.overlap
			}

			c := domain.TextChunk{
				Ordinal: ordinal,
				Text:    string(s.runes[start:end]),
				Overlap: overlap,
			}
			if !yield(c) || end == n {
				return
			}

			start = end - s.overlap
			ordinal++
		}
	}
}

// Collect materializes the sequence.
func (s Sequence) Collect() []domain.TextChunk {
	var out []domain.TextChunk
	for c := range s.All() {
		out = append(out, c)
	}
	return out
}

// Len returns the number of chunks without building them.
func (s Sequence) Len() int {
	n := len(s.runes)
	if n == 0 {
		return 0
	}
	if n <= s.maxChars {
		return 1
	}
	step := s.maxChars - s.overlap
	return 1 + (n-s.maxChars+step-1)/step
}

// Reassemble drops each chunk's overlap prefix and joins the rest.
func Reassemble(chunks []domain.TextChunk) string {
	var b strings.Builder
	for _, c := range chunks {
		r := []rune(c.Text)
		if c.Overlap > 0 && c.Overlap <= len(r) {
			r = r[c.Overlap:]
		}
		b.WriteString(string(r))
	}
	return b.String()
}
