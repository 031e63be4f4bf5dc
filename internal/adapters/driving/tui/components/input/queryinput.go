// Package input provides text input components for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/styles"
)

// QueryInput wraps a bubbles textinput for typing questions.
type QueryInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int
}

// NewQueryInput creates a focused query input.
func NewQueryInput(s *styles.Styles) *QueryInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask about your files..."
	ti.Focus()
	ti.CharLimit = 512
	ti.Width = 50

	return &QueryInput{
		textinput: ti,
		styles:    s,
		width:     50,
	}
}

// Init starts the cursor blink.
func (q *QueryInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (q *QueryInput) Update(msg tea.Msg) (*QueryInput, tea.Cmd) {
	var cmd tea.Cmd
	q.textinput, cmd = q.textinput.Update(msg)
	return q, cmd
}

// View renders the input with its label.
func (q *QueryInput) View() string {
	label := q.styles.Title.Render("Ask: ")
	field := q.styles.InputField.Render(q.textinput.View())
	//nolint:misspell // lipgloss.Center is the library constant
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

func (q *QueryInput) Value() string         { return q.textinput.Value() }
func (q *QueryInput) SetValue(value string) { q.textinput.SetValue(value) }
func (q *QueryInput) Focus() tea.Cmd        { return q.textinput.Focus() }
func (q *QueryInput) Blur()                 { q.textinput.Blur() }
func (q *QueryInput) Focused() bool         { return q.textinput.Focused() }
func (q *QueryInput) Width() int            { return q.width }
func (q *QueryInput) Reset()                { q.textinput.Reset() }

// SetWidth sets the width of the input, leaving room for the label.
func (q *QueryInput) SetWidth(width int) {
	q.width = width
	q.textinput.Width = max(width-10, 20)
}
