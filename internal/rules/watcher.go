package rules

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// defaultWatchDebounce coalesces editor write bursts into one reload.
const defaultWatchDebounce = 250 * time.Millisecond

// Watcher reloads a Store when its backing rule file changes. It
// watches the parent directory rather than the file itself so that
// atomic-rename saves (the common editor pattern) are still observed.
type Watcher struct {
	path     string
	store    *Store
	logger   *zap.Logger
	debounce time.Duration
	watcher  *fsnotify.Watcher
	stop     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for the rule file at path, reloading
// store on every observed change. A non-positive debounce uses the
// default.
func NewWatcher(path string, store *Store, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = defaultWatchDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating filesystem watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	return &Watcher{
		path:     path,
		store:    store,
		logger:   logger,
		debounce: debounce,
		watcher:  fsw,
		stop:     make(chan struct{}),
	}, nil
}

// Start blocks processing filesystem events until the context is
// cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.logger.Info("rule file watcher started", zap.String("path", w.path))

	var (
		debounce *time.Timer
		fire     <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("rule file watcher stopped (context cancelled)")
			return

		case <-w.stop:
			w.logger.Info("rule file watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(w.debounce)
			} else {
				debounce.Reset(w.debounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			count, err := w.store.Reload()
			if err != nil {
				w.logger.Warn("rule reload after file change failed",
					zap.String("path", w.path),
					zap.Error(err))
				continue
			}
			w.logger.Info("rule file change applied",
				zap.String("path", w.path),
				zap.Int("rules", count))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("filesystem watcher error", zap.Error(err))
		}
	}
}

// Stop stops the watcher. Safe to call multiple times.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		_ = w.watcher.Close()
	})
}
