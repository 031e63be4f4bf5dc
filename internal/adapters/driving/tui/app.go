package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/views/ask"
	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/views/files"
	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/views/menu"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles

	menuView  *menu.View
	askView   *ask.View
	filesView *files.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	menuView := menu.NewView(s)
	menuView.SetOwner(ports.Owner)

	askView := ask.NewView(s, km, ports.Query, ports.Owner)
	if ports.TopK > 0 {
		askView.WithTopK(ports.TopK)
	}

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		menuView:    menuView,
		askView:     askView,
		filesView:   files.NewView(s, km, ports.Files, ports.Ingest, ports.Owner),
		currentView: messages.ViewMenu,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.askView.WithContext(ctx)
	a.filesView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("grabdocs"),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message router
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		switch a.currentView {
		case messages.ViewMenu:
			a.menuView, cmd = a.menuView.Update(msg)
		case messages.ViewAsk:
			a.askView, cmd = a.askView.Update(msg)
			a.err = a.askView.Err()
		case messages.ViewFiles:
			a.filesView, cmd = a.filesView.Update(msg)
		case messages.ViewHelp:
			if msg.Type == tea.KeyEsc || msg.String() == "q" {
				a.currentView = messages.ViewMenu
			}
		}
		return a, cmd

	case messages.ViewChanged:
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewAsk:
			a.askView.Reset()
			return a, a.askView.Init()
		case messages.ViewFiles:
			return a, a.filesView.Init()
		case messages.ViewMenu, messages.ViewHelp:
		}
		return a, nil

	case messages.FileSelected:
		f := msg.File
		a.askView.SetFile(&f)
		a.askView.Reset()
		a.currentView = messages.ViewAsk
		return a, a.askView.Init()

	case messages.QueryCompleted:
		a.askView, cmd = a.askView.Update(msg)
		a.err = a.askView.Err()
		return a, cmd

	case messages.FilesLoaded, messages.FileDeleted, messages.FileReindexed:
		a.filesView, cmd = a.filesView.Update(msg)
		a.err = a.filesView.Err()
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		switch a.currentView {
		case messages.ViewAsk:
			a.askView, cmd = a.askView.Update(msg)
		case messages.ViewFiles:
			a.filesView, cmd = a.filesView.Update(msg)
		case messages.ViewMenu, messages.ViewHelp:
		}
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	// Cursor blinks and other internal messages go to the active view.
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewAsk:
		a.askView, cmd = a.askView.Update(msg)
	case messages.ViewFiles:
		a.filesView, cmd = a.filesView.Update(msg)
	case messages.ViewHelp:
	}
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewAsk:
		return a.askView.View()
	case messages.ViewFiles:
		return a.filesView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Global:
  ctrl+c      Quit
  esc         Back to menu

Ask:
  (type)      Question
  enter       Ask
  tab         Cycle kind filter (all, documents, receipts, forms)
  ctrl+g      Toggle answer generation
  ctrl+x      Ask across all files again
  n           New question (results)
  enter       Expand passage (results)

Files:
  j/k, ↑/↓    Navigate
  enter       Ask about the selected file
  tab         Cycle category
  r           Reindex
  d           Delete (confirm with y)
  ctrl+r      Reload

` + a.styles.Help.Render("[esc] back to menu")
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// AskView exposes the ask view.
func (a *App) AskView() *ask.View { return a.askView }

// FilesView exposes the files view.
func (a *App) FilesView() *files.View { return a.filesView }

// SetDimensions sets the terminal dimensions on the app and every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.askView.SetDimensions(width, height)
	a.filesView.SetDimensions(width, height)
}
