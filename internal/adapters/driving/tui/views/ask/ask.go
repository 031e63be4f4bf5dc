// Package ask provides the question view: an input, the generated answer
// and the retrieved passages.
package ask

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driving"
)

// View is the ask view.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.ChunkList
	statusbar *status.Bar

	queryService driving.QueryService
	owner        string
	topK         int
	ctx          context.Context

	// Filter state applied to the next query.
	kind     string
	generate bool
	file     *domain.FileRecord

	result     *domain.QueryResult
	expanded   bool
	width      int
	height     int
	ready      bool
	err        error
	focusInput bool
}

// NewView creates a new ask view for owner.
func NewView(s *styles.Styles, km *keymap.KeyMap, queryService driving.QueryService, owner string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:       s,
		keymap:       km,
		input:        input.NewQueryInput(s),
		list:         list.NewChunkList(s),
		statusbar:    status.NewBar(s, km),
		queryService: queryService,
		owner:        owner,
		ctx:          context.Background(),
		width:        80,
		height:       24,
		focusInput:   true,
	}
}

// WithContext sets the context queries run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// WithTopK sets the number of passages requested per query.
func (v *View) WithTopK(k int) *View {
	v.topK = k
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the ask view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.QueryCompleted:
		v.handleQueryCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	switch {
	case keymap.Matches(msg.String(), v.keymap.CycleKind):
		v.kind = keymap.NextKind(v.kind)
		v.refreshScope()
		return v, nil
	case keymap.Matches(msg.String(), v.keymap.ToggleAnswer):
		v.generate = !v.generate
		v.refreshScope()
		return v, nil
	case keymap.Matches(msg.String(), v.keymap.ClearScope):
		v.file = nil
		v.refreshScope()
		return v, nil
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			text := strings.TrimSpace(v.input.Value())
			if text == "" {
				return v, nil
			}
			v.err = nil
			v.statusbar.SetState(status.StateAsking)
			v.focusInput = false
			v.input.Blur()
			return v, v.performQuery(text)
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch msg.String() {
	case "n":
		v.focusInput = true
		v.expanded = false
		v.input.SetValue("")
		return v, v.input.Focus()
	case "enter":
		v.expanded = !v.expanded
		return v, nil
	}

	v.list, _ = v.list.Update(msg)
	return v, nil
}

// performQuery runs the query with the current filter state.
func (v *View) performQuery(text string) tea.Cmd {
	req := domain.QueryRequest{
		OwnerID:  v.owner,
		Text:     text,
		Kind:     v.kind,
		TopK:     v.topK,
		Generate: v.generate,
	}
	if v.file != nil {
		req.FileIDs = []any{v.file.ID.String()}
	}
	ctx := v.ctx

	return func() tea.Msg {
		if v.queryService == nil {
			return messages.ErrorOccurred{Err: ErrNoQueryService}
		}
		res, err := v.queryService.Query(ctx, req)
		return messages.QueryCompleted{Result: res, Err: err}
	}
}

func (v *View) handleQueryCompleted(msg messages.QueryCompleted) {
	if msg.Err != nil {
		v.setError(msg.Err)
		return
	}

	if msg.Result == nil {
		msg.Result = &domain.QueryResult{}
	}
	v.err = nil
	v.result = msg.Result
	v.expanded = false
	v.list.SetChunks(msg.Result.AnswerContext)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetChunkCount(len(msg.Result.AnswerContext))
	v.focusInput = false
	v.input.Blur()
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
	v.focusInput = true
	v.input.Focus()
}

// refreshScope mirrors the filter state in the status bar.
func (v *View) refreshScope() {
	parts := make([]string, 0, 3)
	if v.file != nil {
		parts = append(parts, "file: "+v.file.OriginalFilename)
	}
	if v.kind != "" {
		parts = append(parts, "kind: "+v.kind)
	}
	if v.generate {
		parts = append(parts, "answer on")
	}
	v.statusbar.SetScope(strings.Join(parts, ", "))
}

// View renders the ask view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 12)
	sections = append(sections, v.styles.Title.Render("grabdocs"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	if v.result != nil {
		if v.result.Answer != "" {
			sections = append(sections, v.styles.Answer.Width(max(v.width-4, 20)).Render(v.result.Answer), "")
		}
		if !v.result.IsDocumentSpecific {
			sections = append(sections, v.styles.Warning.Render("Nothing in your files matched; any answer is general knowledge."), "")
		}
	}

	sections = append(sections, v.list.View())

	if v.expanded {
		if rc := v.list.SelectedChunk(); rc != nil {
			body := v.styles.Border.Width(max(v.width-4, 20)).Padding(0, 1).Render(rc.Chunk.Text)
			sections = append(sections, "", body)
		}
	}

	sections = append(sections, "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-12)
	v.statusbar.SetWidth(width)
}

// SetFile restricts the next queries to one file. Nil clears it.
func (v *View) SetFile(f *domain.FileRecord) {
	v.file = f
	v.refreshScope()
}

// Reset returns to input mode with an empty query, keeping the filter state.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetChunks(nil)
	v.result = nil
	v.err = nil
	v.expanded = false
	v.statusbar.Clear()
	v.refreshScope()
}

func (v *View) Query() string               { return v.input.Value() }
func (v *View) SetQuery(q string)           { v.input.SetValue(q) }
func (v *View) Result() *domain.QueryResult { return v.result }
func (v *View) Err() error                  { return v.err }
func (v *View) Kind() string                { return v.kind }
func (v *View) Generate() bool              { return v.generate }
func (v *View) File() *domain.FileRecord    { return v.file }
func (v *View) InputFocused() bool          { return v.focusInput }
func (v *View) Expanded() bool              { return v.expanded }
func (v *View) Ready() bool                 { return v.ready }
