// Package keymap defines keybindings for the TUI.
package keymap

import (
	"slices"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the TUI.
type KeyMap struct {
	Quit   key.Binding
	Help   key.Binding
	Back   key.Binding
	Submit key.Binding
	Up     key.Binding
	Down   key.Binding
	Select key.Binding

	// NewQuery clears the input from the results view.
	NewQuery key.Binding

	// CycleKind steps through the kind filter: all, documents, receipts, forms.
	CycleKind key.Binding

	// ToggleAnswer switches answer generation on or off.
	ToggleAnswer key.Binding

	// ClearScope drops a single-file restriction.
	ClearScope key.Binding

	Reindex key.Binding
	Delete  key.Binding
	Reload  key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "ask"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		NewQuery: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new question"),
		),
		CycleKind: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "kind"),
		),
		ToggleAnswer: key.NewBinding(
			key.WithKeys("ctrl+g"),
			key.WithHelp("ctrl+g", "answer"),
		),
		ClearScope: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "all files"),
		),
		Reindex: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reindex"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reload"),
		),
	}
}

// ShortHelp returns the hints shown while typing a question.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.CycleKind, k.ToggleAnswer, k.Back}
}

// ResultsHelp returns keybindings for the results view.
func (k *KeyMap) ResultsHelp() []key.Binding {
	return []key.Binding{k.NewQuery, k.Up, k.Down, k.Back}
}

// FilesHelp returns keybindings for the files view.
func (k *KeyMap) FilesHelp() []key.Binding {
	return []key.Binding{k.Select, k.CycleKind, k.Reindex, k.Delete, k.Back}
}

// FullHelp returns the full list of keybindings for the help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.Submit, k.NewQuery, k.CycleKind, k.ToggleAnswer, k.ClearScope},
		{k.Reindex, k.Delete, k.Reload},
		{k.Back, k.Help, k.Quit},
	}
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	return slices.Contains(binding.Keys(), keyStr)
}

// KindCycle is the order CycleKind steps through. The empty token means all kinds.
var KindCycle = []string{"", "documents", "receipts", "forms"}

// NextKind returns the token after current in KindCycle.
func NextKind(current string) string {
	i := slices.Index(KindCycle, current)
	return KindCycle[(i+1)%len(KindCycle)]
}
