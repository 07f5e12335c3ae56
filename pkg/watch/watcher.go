// Package watch re-runs analysis when source files under a root change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/panbanda/augur/pkg/config"
)

// DefaultDebounce is how long a batch of changes must be quiet before the
// callback runs.
const DefaultDebounce = 500 * time.Millisecond

// Callback receives the root-relative paths changed since the last run.
type Callback func(ctx context.Context, changed []string)

// Watcher monitors a directory tree and batches changes to analyzable files.
type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	config     *config.Config
	logger     *slog.Logger
	debounce   time.Duration
	root       string
	extensions map[string]bool
	callback   Callback

	mu      sync.Mutex
	pending map[string]time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period; values <= 0 keep DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// NewWatcher creates a watcher for root. Nothing is watched until Start.
func NewWatcher(root string, cfg *config.Config, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher:  fsWatcher,
		config:     cfg,
		logger:     slog.Default(),
		debounce:   DefaultDebounce,
		root:       abs,
		extensions: make(map[string]bool, len(cfg.Analysis.Extensions)),
		pending:    make(map[string]time.Time),
	}
	for _, ext := range cfg.Analysis.Extensions {
		w.extensions[strings.ToLower(ext)] = true
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// SetCallback sets the function to call for each settled batch of changes.
func (w *Watcher) SetCallback(cb Callback) {
	w.callback = cb
}

// Start watches until ctx is cancelled. Batches are delivered one at a time
// on a single goroutine, so a slow callback delays the next batch instead of
// overlapping with it.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}
	w.logger.Info("watching for changes", slog.String("root", w.root), slog.Int("dirs", len(w.fsWatcher.WatchList())))

	ticker := time.NewTicker(w.tick())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.Any("error", err))

		case <-ticker.C:
			if ready := w.takeReady(time.Now()); len(ready) > 0 && w.callback != nil {
				w.callback(ctx, ready)
			}
		}
	}
}

func (w *Watcher) tick() time.Duration {
	return min(100*time.Millisecond, w.debounce)
}

// addTree watches dir and every non-excluded directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && slices.Contains(w.config.Exclude.Dirs, d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	rel = filepath.ToSlash(rel)

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.config.ShouldExclude(rel+"/x") {
				return
			}
			if err := w.addTree(event.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
				w.logger.Warn("cannot watch new directory", slog.String("path", rel), slog.Any("error", err))
			}
			return
		}
	}

	if !w.Relevant(rel) {
		return
	}

	w.mu.Lock()
	w.pending[rel] = time.Now()
	w.mu.Unlock()
}

// Relevant reports whether a change to the root-relative path can affect
// the analysis result.
func (w *Watcher) Relevant(rel string) bool {
	if !w.extensions[strings.ToLower(filepath.Ext(rel))] {
		return false
	}
	return !w.config.ShouldExclude(rel)
}

// takeReady removes and returns, sorted, the pending paths once the newest
// change is at least one debounce period old.
func (w *Watcher) takeReady(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) == 0 {
		return nil
	}
	for _, last := range w.pending {
		if now.Sub(last) < w.debounce {
			return nil
		}
	}

	ready := make([]string, 0, len(w.pending))
	for path := range w.pending {
		ready = append(ready, path)
	}
	clear(w.pending)
	slices.Sort(ready)
	return ready
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the directories currently watched.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}
