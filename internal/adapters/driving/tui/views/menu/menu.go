// Package menu provides the main navigation menu view for the TUI.
package menu

import (
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/styles"
)

// Item represents a single menu option.
type Item struct {
	Label       string
	Description string
	View        messages.ViewType
	Quit        bool // selecting this item quits the app
}

// View represents the main menu view.
type View struct {
	styles   *styles.Styles
	items    []Item
	owner    string
	selected int
	width    int
	height   int
	ready    bool
}

// NewView creates a new menu view.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &View{
		styles: s,
		items: []Item{
			{Label: "Ask", Description: "ask a question across your files", View: messages.ViewAsk},
			{Label: "Files", Description: "browse, reindex or delete uploads", View: messages.ViewFiles},
			{Label: "Help", Description: "key bindings", View: messages.ViewHelp},
			{Label: "Quit", Quit: true},
		},
		width:  80,
		height: 24,
	}
}

// SetOwner sets the identity shown under the title.
func (v *View) SetOwner(owner string) { v.owner = owner }

// Init initialises the menu view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the menu view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "up", "k":
			if v.selected > 0 {
				v.selected--
			}
		case "down", "j":
			if v.selected < len(v.items)-1 {
				v.selected++
			}
		case "enter":
			return v, v.activate(v.items[v.selected])
		case "q":
			return v, tea.Quit
		default:
			// Number shortcuts jump straight to an item.
			if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(v.items) {
				v.selected = n - 1
				return v, v.activate(v.items[v.selected])
			}
		}
	}

	return v, nil
}

func (v *View) activate(item Item) tea.Cmd {
	if item.Quit {
		return tea.Quit
	}
	return func() tea.Msg {
		return messages.ViewChanged{View: item.View}
	}
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder

	b.WriteString(v.styles.Title.Render("grabdocs"))
	b.WriteString("\n\n")

	subtitle := "Ask your files"
	if v.owner != "" {
		subtitle += " as " + v.owner
	}
	b.WriteString(v.styles.Subtitle.Render(subtitle))
	b.WriteString("\n\n")

	for i, item := range v.items {
		cursor := "  "
		label := v.styles.Normal.Render(strconv.Itoa(i+1) + ". " + item.Label)
		if i == v.selected {
			cursor = "> "
			label = v.styles.Selected.Render(strconv.Itoa(i+1) + ". " + item.Label)
		}
		b.WriteString(cursor + label)
		if item.Description != "" {
			b.WriteString("  " + v.styles.Muted.Render(item.Description))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] navigate  [enter] select  [1-4] jump  [q] quit"))

	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Selected returns the currently selected index.
func (v *View) Selected() int {
	return v.selected
}

// Items returns the menu entries.
func (v *View) Items() []Item {
	return v.items
}
