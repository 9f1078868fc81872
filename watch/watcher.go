// Package watch reports changes to the files an expansion depends on.
package watch

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dhamidi/unfold/include"
	"github.com/dhamidi/unfold/source"
	"github.com/fsnotify/fsnotify"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("unfold.watch")

// Handler receives the changed files of one debounce window, sorted.
type Handler func(changed []string)

// FileWatcher watches a set of files and batches their changes. fsnotify
// watches directories, so the watcher subscribes to the parent directory of
// every file and drops events for anything else.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	handler  Handler
	debounce time.Duration

	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewFileWatcher(handler Handler, debounce time.Duration) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	return &FileWatcher{
		watcher:  w,
		handler:  handler,
		debounce: debounce,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		stopCh:   make(chan struct{}),
	}, nil
}

// SetFiles replaces the watched set. It is safe to call from the handler.
func (w *FileWatcher) SetFiles(paths []string) error {
	files := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		p = filepath.Clean(p)
		files[p] = true
		dirs[filepath.Dir(p)] = true
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for dir := range w.dirs {
		if !dirs[dir] {
			if err := w.watcher.Remove(dir); err != nil {
				log.Debugf("unwatch %s: %v", dir, err)
			}
		}
	}
	for dir := range dirs {
		if w.dirs[dir] {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}
	w.files = files
	w.dirs = dirs
	log.Debugf("watching %d files in %d directories", len(files), len(dirs))
	return nil
}

func (w *FileWatcher) watched(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[filepath.Clean(path)]
}

func (w *FileWatcher) Start() {
	go w.Run(context.Background())
}

func (w *FileWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run delivers batched changes until ctx is done or Stop is called.
func (w *FileWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warningf("watch error: %v", err)
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !w.watched(ev.Name) {
				continue
			}
			pending[filepath.Clean(ev.Name)] = true
			timer.Reset(w.debounce)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)
			w.handler(changed)
		}
	}
}

// Files returns the files on disk the tree was read from, deduplicated,
// in first-seen order. Archive entries are reported as their archive.
func Files(node *include.Node) []string {
	seen := make(map[string]bool)
	var files []string
	node.Walk(func(n *include.Node, depth int) bool {
		name := n.Name()
		if archive, ok := source.Archive(name); ok {
			name = archive
		}
		if !filepath.IsAbs(name) || seen[name] {
			return true
		}
		seen[name] = true
		files = append(files, name)
		return true
	})
	return files
}
