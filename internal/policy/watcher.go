package policy

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mamamialezatoz/go-pmaudit/internal/logger"
)

const defaultReloadDelay = 500 * time.Millisecond

// Watcher reloads a store whenever its policy file changes on disk
type Watcher struct {
	store       *Store
	path        string
	watcher     *fsnotify.Watcher
	log         logger.Logger
	reloadDelay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher watches the local policy file of store. The parent directory
// is watched so that editors replacing the file by rename are noticed.
func NewWatcher(store *Store, log logger.Logger) (*Watcher, error) {
	path := store.Config().Path
	if path == "" {
		return nil, ErrNotWritable
	}
	if log == nil {
		log = logger.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch policy directory: %w", err)
	}

	return &Watcher{
		store:       store,
		path:        filepath.Clean(path),
		watcher:     fw,
		log:         log,
		reloadDelay: defaultReloadDelay,
	}, nil
}

// SetReloadDelay changes the debounce interval between a change and the reload
func (w *Watcher) SetReloadDelay(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reloadDelay = d
}

// Run processes file events until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Policy watcher error", logger.Error(err))
		}
	}
}

// handleEvent schedules a reload for writes to the policy file, collapsing
// bursts of events into one reload
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.reloadDelay, func() {
		if _, err := w.store.Reload(ctx); err == nil {
			w.log.Info("Policy file reloaded", logger.String("path", w.path))
		}
	})
}
