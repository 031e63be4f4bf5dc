// Package filesystem lists and watches a local folder of uploads.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/grabdocs/internal/logger"
)

// ErrNotDirectory is returned when the root is not a directory.
var ErrNotDirectory = errors.New("filesystem: root is not a directory")

// ChangeType describes what happened to a file.
type ChangeType string

// Change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change is a file event under the root.
type Change struct {
	Type ChangeType
	Path string
}

// Connector reads files under one root directory.
// Hidden files and directories are ignored.
type Connector struct {
	rootPath string
	log      logger.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// New creates a connector for rootPath.
func New(rootPath string) *Connector {
	return &Connector{rootPath: rootPath, log: logger.With("folder")}
}

// Root returns the watched directory.
func (c *Connector) Root() string { return c.rootPath }

// Validate checks the root exists and is a directory.
func (c *Connector) Validate() error {
	if c.rootPath == "" {
		return fmt.Errorf("filesystem: root path is required")
	}
	info, err := os.Stat(c.rootPath)
	if err != nil {
		return fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}
	return nil
}

// Scan returns the regular files under the root in lexical order.
func (c *Connector) Scan(ctx context.Context) ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var paths []string
	err := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if c.hidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", c.rootPath, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Watch streams changes under the root until ctx is cancelled.
// New subdirectories are watched as they appear.
func (c *Connector) Watch(ctx context.Context) (<-chan Change, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := c.addTree(w, c.rootPath); err != nil {
		w.Close()
		return nil, err
	}

	c.mu.Lock()
	if c.watcher != nil {
		c.watcher.Close()
	}
	c.watcher = w
	c.mu.Unlock()

	changes := make(chan Change)
	go c.loop(ctx, w, changes)
	return changes, nil
}

func (c *Connector) loop(ctx context.Context, w *fsnotify.Watcher, out chan<- Change) {
	defer close(out)
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !c.hidden(event.Name) {
					if err := c.addTree(w, event.Name); err != nil {
						c.log.Warn("watch %s: %v", event.Name, err)
					}
				}
			}
			change := c.handleFsEvent(event)
			if change == nil {
				continue
			}
			select {
			case out <- *change:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			c.log.Warn("watcher error: %v", err)
		}
	}
}

func (c *Connector) addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if c.hidden(path) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// handleFsEvent maps a raw event to a Change, or nil when it is ignored.
func (c *Connector) handleFsEvent(event fsnotify.Event) *Change {
	if c.hidden(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &Change{Type: ChangeDeleted, Path: event.Name}
	case event.Has(fsnotify.Create):
		if !isRegular(event.Name) {
			return nil
		}
		return &Change{Type: ChangeCreated, Path: event.Name}
	case event.Has(fsnotify.Write):
		if !isRegular(event.Name) {
			return nil
		}
		return &Change{Type: ChangeUpdated, Path: event.Name}
	default:
		return nil
	}
}

// Close stops the active watcher, if any.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher == nil {
		return nil
	}
	err := c.watcher.Close()
	c.watcher = nil
	return err
}

// hidden reports whether path, relative to the root, passes through a dot entry.
func (c *Connector) hidden(path string) bool {
	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		return isHidden(path)
	}
	return isHidden(rel)
}

func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && part[0] == '.' && part != ".." {
			return true
		}
	}
	return false
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
