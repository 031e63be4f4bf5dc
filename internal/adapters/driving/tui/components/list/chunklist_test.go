package list

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

func sampleChunks(n int) []domain.RetrievedChunk {
	out := make([]domain.RetrievedChunk, n)
	for i := range n {
		out[i] = domain.RetrievedChunk{
			Chunk: domain.Chunk{
				FileID:  "166",
				Kind:    domain.KindDocument,
				Ordinal: i,
				Text:    "Assignment 1\nsubmitted to   Dr. X",
			},
			File:  domain.FileRecord{ID: "166", OriginalFilename: "a1.txt"},
			Score: 0.9 - float64(i)*0.1,
		}
	}
	return out
}

func TestChunkList_Empty(t *testing.T) {
	c := NewChunkList(nil)

	assert.Equal(t, 0, c.Count())
	assert.Nil(t, c.SelectedChunk())
	assert.Contains(t, c.View(), "No passages")
}

func TestChunkList_View(t *testing.T) {
	c := NewChunkList(nil)
	c.SetChunks(sampleChunks(2))

	view := c.View()
	assert.Contains(t, view, "Passages (2)")
	assert.Contains(t, view, "a1.txt #0")
	assert.Contains(t, view, "[document]")
	assert.Contains(t, view, "0.900")
	// Whitespace in previews is collapsed onto one line.
	assert.Contains(t, view, "Assignment 1 submitted to Dr. X")
}

func TestChunkList_FallsBackToChunkFilename(t *testing.T) {
	c := NewChunkList(nil)
	chunks := sampleChunks(1)
	chunks[0].File = domain.FileRecord{}
	chunks[0].Chunk.Filename = "stored.txt"
	c.SetChunks(chunks)

	assert.Contains(t, c.View(), "stored.txt #0")
}

func TestChunkList_Navigation(t *testing.T) {
	c := NewChunkList(nil)
	c.SetChunks(sampleChunks(3))

	c.MoveUp()
	assert.Equal(t, 0, c.Selected())

	c, _ = c.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	c, _ = c.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, c.Selected())

	c.MoveDown()
	assert.Equal(t, 2, c.Selected())
	require.NotNil(t, c.SelectedChunk())
	assert.Equal(t, 2, c.SelectedChunk().Chunk.Ordinal)

	c.SetChunks(sampleChunks(1))
	assert.Equal(t, 0, c.Selected())
}

func TestChunkList_ScrollsToSelection(t *testing.T) {
	c := NewChunkList(nil)
	c.SetDimensions(80, 10)
	c.SetChunks(sampleChunks(6))
	for range 5 {
		c.MoveDown()
	}

	view := c.View()
	assert.Contains(t, view, "a1.txt #5")
	assert.NotContains(t, view, "a1.txt #0")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, 10, len([]rune(truncate(strings.Repeat("é", 20), 10))))
}
