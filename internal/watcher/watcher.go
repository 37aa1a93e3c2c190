// Package watcher picks up EDL files dropped into a watch folder.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must stay quiet before it is
// considered fully written.
const DefaultSettle = 2 * time.Second

// Handler receives the path of a settled EDL file.
type Handler func(path string)

// Watcher watches a single directory for new EDL files. Editors drop
// exports into the folder; a file is handed to the Handler once no
// further writes arrive within the settle window, so half-copied files
// are never picked up.
type Watcher struct {
	dir     string
	settle  time.Duration
	logger  *slog.Logger
	handler Handler

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a watcher for dir. A settle of 0 uses DefaultSettle.
func New(dir string, settle time.Duration, handler Handler, logger *slog.Logger) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		dir:     dir,
		settle:  settle,
		logger:  logger,
		handler: handler,
		pending: make(map[string]*time.Timer),
	}
}

// Run watches the directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching for EDL drops", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !isEDL(event.Name) {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "dir", w.dir, "error", err)
		}
	}
}

// schedule arms (or re-arms) the settle timer for path. Each write
// pushes delivery out by another settle window.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.handler(path)
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func isEDL(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".edl")
}
