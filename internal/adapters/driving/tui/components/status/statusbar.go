// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/styles"
)

// State represents the current application state for display.
type State string

const (
	StateReady   State = "ready"
	StateAsking  State = "asking"
	StateError   State = "error"
	StateResults State = "results"
)

// Bar displays query state, the active scope and keybinding hints.
type Bar struct {
	styles     *styles.Styles
	keymap     *keymap.KeyMap
	state      State
	message    string
	scope      string
	chunkCount int
	width      int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// Init implements the component contract.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update is a no-op; the bar is driven through its setters.
func (s *Bar) Update(tea.Msg) (*Bar, tea.Cmd) {
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	inner := s.width - s.styles.StatusBar.GetHorizontalPadding()
	padding := max(inner-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	var text string
	switch s.state {
	case StateAsking:
		text = s.styles.Muted.Render("Retrieving...")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render("Error: " + s.message)
		}
		return s.styles.Error.Render("Error")
	case StateResults:
		text = s.styles.Normal.Render(fmt.Sprintf("%d passages", s.chunkCount))
	default:
		text = s.styles.Muted.Render("Ready")
	}
	if s.message != "" {
		text += s.styles.Muted.Render(" · " + s.message)
	}
	if s.scope != "" {
		text += s.styles.Subtitle.Render(" · " + s.scope)
	}
	return text
}

func (s *Bar) renderRight() string {
	var bindings []key.Binding
	if s.state == StateResults {
		bindings = s.keymap.ResultsHelp()
	} else {
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

func (s *Bar) SetState(state State)      { s.state = state }
func (s *Bar) State() State              { return s.state }
func (s *Bar) SetMessage(message string) { s.message = message }
func (s *Bar) Message() string           { return s.message }
func (s *Bar) SetScope(scope string)     { s.scope = scope }
func (s *Bar) Scope() string             { return s.scope }
func (s *Bar) SetChunkCount(count int)   { s.chunkCount = count }
func (s *Bar) ChunkCount() int           { return s.chunkCount }
func (s *Bar) SetWidth(width int)        { s.width = width }
func (s *Bar) Width() int                { return s.width }

// Clear resets the bar to its initial state, keeping the scope.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.chunkCount = 0
}
