// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewAsk is the query input with retrieved passages.
	ViewAsk
	// ViewFiles lists uploaded files.
	ViewFiles
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewAsk:
		return "ask"
	case ViewFiles:
		return "files"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// QueryCompleted carries a query result back to the ask view.
type QueryCompleted struct {
	Result *domain.QueryResult
	Err    error
}

// FilesLoaded carries the owner's files, filtered by Category.
type FilesLoaded struct {
	Category string
	Files    []domain.FileRecord
	Err      error
}

// FileSelected scopes the ask view to one file.
type FileSelected struct {
	File domain.FileRecord
}

// FileDeleted signals a file was removed.
type FileDeleted struct {
	ID  domain.FileID
	Err error
}

// FileReindexed signals a reindex run finished.
type FileReindexed struct {
	Result *domain.IngestResult
	Err    error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
