// Package files provides the file list view: browse by category, reindex,
// delete, or pick a file to ask about.
package files

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driving"
)

// ErrReindexUnavailable is reported when no ingest service was provided.
var ErrReindexUnavailable = errors.New("reindex is not available")

// View is the files list view.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	files  driving.FileService
	ingest driving.IngestService
	owner  string
	ctx    context.Context

	category      string
	records       []domain.FileRecord
	selected      int
	scrollOffset  int
	width         int
	height        int
	loading       bool
	confirmDelete bool
	notice        string
	err           error
}

// NewView creates a files view for owner. ingest may be nil.
func NewView(s *styles.Styles, km *keymap.KeyMap, files driving.FileService, ingest driving.IngestService, owner string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles: s,
		keymap: km,
		files:  files,
		ingest: ingest,
		owner:  owner,
		ctx:    context.Background(),
		width:  80,
		height: 24,
	}
}

// WithContext sets the context service calls run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the file list.
func (v *View) Init() tea.Cmd {
	return v.Load()
}

// Load returns a command that lists files in the current category.
func (v *View) Load() tea.Cmd {
	v.loading = true
	ctx, owner, category := v.ctx, v.owner, v.category
	return func() tea.Msg {
		recs, err := v.files.List(ctx, owner, category)
		return messages.FilesLoaded{Category: category, Files: recs, Err: err}
	}
}

// Update handles messages for the files view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.FilesLoaded:
		if msg.Category != v.category {
			// A newer load is in flight.
			return v, nil
		}
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.records = msg.Files
			v.selected = min(v.selected, max(len(v.records)-1, 0))
			v.adjustScroll()
		}
		return v, nil

	case messages.FileDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = fmt.Sprintf("Deleted file %s", msg.ID)
		return v, v.Load()

	case messages.FileReindexed:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = fmt.Sprintf("Reindexed file %s: %s, %d chunks", msg.Result.FileID, msg.Result.State, msg.Result.ChunksIndexed)
		return v, v.Load()

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}
	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()

	if v.confirmDelete {
		v.confirmDelete = false
		if key == "y" || keymap.Matches(key, v.keymap.Delete) {
			return v, v.deleteSelected()
		}
		v.notice = ""
		return v, nil
	}

	switch {
	case keymap.Matches(key, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case keymap.Matches(key, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case keymap.Matches(key, v.keymap.Down):
		if v.selected < len(v.records)-1 {
			v.selected++
			v.adjustScroll()
		}
	case keymap.Matches(key, v.keymap.CycleKind):
		v.category = keymap.NextKind(v.category)
		v.selected, v.scrollOffset = 0, 0
		return v, v.Load()
	case keymap.Matches(key, v.keymap.Reload):
		return v, v.Load()
	case keymap.Matches(key, v.keymap.Select):
		if rec := v.SelectedFile(); rec != nil {
			f := *rec
			return v, func() tea.Msg { return messages.FileSelected{File: f} }
		}
	case keymap.Matches(key, v.keymap.Reindex):
		return v, v.reindexSelected()
	case keymap.Matches(key, v.keymap.Delete):
		if rec := v.SelectedFile(); rec != nil {
			v.confirmDelete = true
			v.notice = fmt.Sprintf("Delete %s? [y/d] confirm, any other key cancels", rec.OriginalFilename)
		}
	}
	return v, nil
}

func (v *View) deleteSelected() tea.Cmd {
	rec := v.SelectedFile()
	if rec == nil {
		return nil
	}
	ctx, owner, id := v.ctx, v.owner, rec.ID
	return func() tea.Msg {
		return messages.FileDeleted{ID: id, Err: v.files.Delete(ctx, owner, id)}
	}
}

func (v *View) reindexSelected() tea.Cmd {
	rec := v.SelectedFile()
	if rec == nil {
		return nil
	}
	if v.ingest == nil {
		v.err = ErrReindexUnavailable
		return nil
	}
	v.notice = "Reindexing " + rec.OriginalFilename + "..."
	ctx, owner, id := v.ctx, v.owner, rec.ID
	return func() tea.Msg {
		res, err := v.ingest.Reindex(ctx, owner, id)
		return messages.FileReindexed{Result: res, Err: err}
	}
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

func (v *View) visibleItemCount() int {
	return max(v.height-9, 1)
}

// View renders the files view.
func (v *View) View() string {
	var b strings.Builder

	category := v.category
	if category == "" {
		category = "all"
	}
	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Files - %s (%d)", category, len(v.records))))
	b.WriteString("\n\n")

	switch {
	case v.loading && len(v.records) == 0:
		b.WriteString(v.styles.Muted.Render("Loading files..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.records) == 0:
		b.WriteString(v.styles.Muted.Render("No files in this category."))
	default:
		visible := v.visibleItemCount()
		end := min(v.scrollOffset+visible, len(v.records))
		for i := v.scrollOffset; i < end; i++ {
			b.WriteString(v.renderFile(i, &v.records[i]))
			b.WriteString("\n")
		}
		if len(v.records) > visible {
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]", v.scrollOffset+1, end, len(v.records))))
		}
	}
	b.WriteString("\n\n")

	if v.notice != "" {
		b.WriteString(v.styles.Warning.Render(v.notice))
		b.WriteString("\n")
	}
	b.WriteString(v.styles.Help.Render("[↑/↓] navigate  [enter] ask about file  [tab] category  [r] reindex  [d] delete  [esc] back"))
	return b.String()
}

func (v *View) renderFile(index int, rec *domain.FileRecord) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	nameWidth := max(v.width/2-4, 10)
	name := rec.OriginalFilename
	if len(name) > nameWidth {
		name = name[:nameWidth-3] + "..."
	}

	state := rec.Status.String()
	if rec.Status == domain.StateFailed && rec.FailedStage != "" {
		state += " at " + rec.FailedStage.String()
	}
	meta := fmt.Sprintf("#%s  %d chunks  %s", rec.ID, rec.ChunkCount, state)

	line := fmt.Sprintf("%s%-*s", indicator, nameWidth, name)
	if index == v.selected {
		line = v.styles.Selected.Render(line)
	} else {
		line = v.styles.Normal.Render(line)
	}
	return line + " " + v.styles.KindBadge(rec.Kind) + "  " + v.styles.Muted.Render(meta)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// SetCategory sets the kind filter used by the next Load.
func (v *View) SetCategory(token string) {
	v.category = token
	v.selected, v.scrollOffset = 0, 0
}

// SelectedFile returns the selected record, or nil when the list is empty.
func (v *View) SelectedFile() *domain.FileRecord {
	if v.selected < 0 || v.selected >= len(v.records) {
		return nil
	}
	return &v.records[v.selected]
}

func (v *View) Files() []domain.FileRecord { return v.records }
func (v *View) Category() string           { return v.category }
func (v *View) SelectedIndex() int         { return v.selected }
func (v *View) ConfirmingDelete() bool     { return v.confirmDelete }
func (v *View) Notice() string             { return v.notice }
func (v *View) Err() error                 { return v.err }
