package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc is invoked when a file under the config directory changes.
type ReloadFunc func() error

// Watcher monitors the project config directory and invokes registered
// reload callbacks on change. It never touches initialised modules; reload
// semantics are up to the callbacks.
type Watcher struct {
	mu        sync.Mutex
	fsWatcher *fsnotify.Watcher
	callbacks []ReloadFunc
	logger    *slog.Logger
	started   bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// NewWatcher creates a watcher over <baseDir>/config.
func NewWatcher(baseDir string, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher; %w", err)
	}

	w := &Watcher{
		fsWatcher: fsw,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	dir := filepath.Join(baseDir, "config")
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s; %w", dir, err)
	}
	return w, nil
}

// OnReload registers a callback invoked after every observed change.
func (w *Watcher) OnReload(fn ReloadFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Start processes filesystem events until ctx is cancelled. It is safe to
// call once; a second call is a no-op.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.fsWatcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				w.logger.Debug("config change observed", "file", event.Name, "op", event.Op.String())
				w.reload()
			case err, ok := <-w.fsWatcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("config watcher error", "error", err)
			}
		}
	}()
}

// reload invokes every callback; failures are logged and the remaining
// callbacks still run.
func (w *Watcher) reload() {
	w.mu.Lock()
	callbacks := make([]ReloadFunc, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, fn := range callbacks {
		if err := fn(); err != nil {
			w.logger.Warn("config reload callback failed", "error", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}
