// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

// ChunkList displays retrieved passages in rank order.
type ChunkList struct {
	chunks   []domain.RetrievedChunk
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewChunkList creates an empty chunk list.
func NewChunkList(s *styles.Styles) *ChunkList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &ChunkList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init implements the component contract.
func (c *ChunkList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation.
func (c *ChunkList) Update(msg tea.Msg) (*ChunkList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			c.MoveUp()
		case "down", "j":
			c.MoveDown()
		}
	}
	return c, nil
}

// View renders the visible window of passages.
func (c *ChunkList) View() string {
	if len(c.chunks) == 0 {
		return c.styles.Muted.Render("No passages")
	}

	lines := make([]string, 0, len(c.chunks)*2+2)
	lines = append(lines, c.styles.Subtitle.Render(fmt.Sprintf("Passages (%d)", len(c.chunks))), "")

	// Each passage takes two lines plus slack.
	visible := max((c.height-4)/3, 1)
	start := 0
	if c.selected >= visible {
		start = c.selected - visible + 1
	}
	end := min(start+visible, len(c.chunks))

	for i := start; i < end; i++ {
		lines = append(lines, c.renderChunk(i, &c.chunks[i]))
	}
	return strings.Join(lines, "\n")
}

func (c *ChunkList) renderChunk(index int, rc *domain.RetrievedChunk) string {
	indicator := "  "
	if index == c.selected {
		indicator = "> "
	}

	name := rc.File.OriginalFilename
	if name == "" {
		name = rc.Chunk.Filename
	}
	if name == "" {
		name = rc.Chunk.FileID.String()
	}
	name = truncate(fmt.Sprintf("%s #%d", name, rc.Chunk.Ordinal), max(c.width-30, 10))

	score := fmt.Sprintf("%.3f", rc.Score)
	badge := c.styles.KindBadge(rc.Chunk.Kind)

	var head string
	if index == c.selected {
		head = c.styles.Selected.Render(indicator+name) + " " + badge + " " + c.styles.Muted.Render(score)
	} else {
		head = c.styles.Normal.Render(indicator+name) + " " + badge + " " + c.styles.Muted.Render(score)
	}

	preview := strings.Join(strings.Fields(rc.Chunk.Text), " ")
	preview = truncate(preview, max(c.width-6, 20))
	return head + "\n" + c.styles.Muted.Render("    "+preview)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// SetChunks replaces the list and resets the selection.
func (c *ChunkList) SetChunks(chunks []domain.RetrievedChunk) {
	c.chunks = chunks
	c.selected = 0
}

// Chunks returns the current passages.
func (c *ChunkList) Chunks() []domain.RetrievedChunk {
	return c.chunks
}

// Selected returns the index of the selected passage.
func (c *ChunkList) Selected() int {
	return c.selected
}

// SelectedChunk returns the selected passage, or nil if the list is empty.
func (c *ChunkList) SelectedChunk() *domain.RetrievedChunk {
	if c.selected < 0 || c.selected >= len(c.chunks) {
		return nil
	}
	return &c.chunks[c.selected]
}

// MoveUp moves selection up.
func (c *ChunkList) MoveUp() {
	if c.selected > 0 {
		c.selected--
	}
}

// MoveDown moves selection down.
func (c *ChunkList) MoveDown() {
	if c.selected < len(c.chunks)-1 {
		c.selected++
	}
}

// SetDimensions sets the component dimensions.
func (c *ChunkList) SetDimensions(width, height int) {
	c.width = width
	c.height = height
}

func (c *ChunkList) Count() int { return len(c.chunks) }
