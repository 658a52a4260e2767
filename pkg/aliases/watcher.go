package aliases

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is how long the watcher waits after the last
// file event before reloading.
const DefaultDebounceInterval = 100 * time.Millisecond

// WatcherConfig contains configuration for the models file watcher.
type WatcherConfig struct {
	// Path is the models file to watch.
	Path string

	// DebounceInterval coalesces rapid file change events into a
	// single reload.
	// Default: 100ms
	DebounceInterval time.Duration
}

// Watcher reloads the models file when it changes and swaps the
// store's lookup. Reload failures keep the previous lookup, so a
// half-written or invalid file never degrades resolution.
type Watcher struct {
	watcher  *fsnotify.Watcher
	store    *Store
	logger   *slog.Logger
	config   WatcherConfig
	debounce *debouncer

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher that keeps store in sync with the
// models file at config.Path.
func NewWatcher(config WatcherConfig, store *Store, logger *slog.Logger) (*Watcher, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("watch path cannot be empty")
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultDebounceInterval
	}
	if logger == nil {
		logger = slog.Default().With("component", "aliases.watcher")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher:  fsWatcher,
		store:    store,
		logger:   logger,
		config:   config,
		debounce: newDebouncer(config.DebounceInterval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch starts watching for file changes. This is a blocking operation
// that runs until the context is cancelled or Stop is called.
//
// The watch is registered on the file's parent directory rather than
// the file itself: editors that save via rename would otherwise detach
// a direct file watch on the first write.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	dir := filepath.Dir(w.config.Path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %q: %w", dir, err)
	}

	w.logger.Info("models file watcher started",
		"path", w.config.Path,
		"debounce_ms", w.config.DebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("models file watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("models file watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}

			if !w.shouldProcessEvent(event) {
				continue
			}

			w.logger.Debug("models file event detected",
				"path", event.Name,
				"op", event.Op.String(),
			)

			w.debounce.trigger(w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}

			// Keep watching despite errors.
			w.logger.Error("models file watcher error", "error", err)
		}
	}
}

// Stop stops the watcher. Safe to call when the watcher never started.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.debounce.stop()
		return w.watcher.Close()
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.debounce.stop()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	return nil
}

// IsRunning reports whether the watch loop is active.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// shouldProcessEvent keeps only events for the models file itself; the
// directory watch also surfaces sibling files and editor temp files.
func (w *Watcher) shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	return filepath.Base(event.Name) == filepath.Base(w.config.Path)
}

func (w *Watcher) reload() {
	lookup, err := LoadFile(w.config.Path)
	if err != nil {
		w.logger.Error("models file reload failed, keeping previous aliases",
			"path", w.config.Path,
			"error", err,
		)
		return
	}

	w.store.Replace(lookup)
	w.logger.Info("models file reloaded",
		"path", w.config.Path,
		"aliases", len(lookup),
	)
}

// debouncer collects rapid events and runs the callback only after a
// quiet period.
type debouncer struct {
	interval time.Duration
	timer    *time.Timer
	mu       sync.Mutex
	callback func()
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// trigger arms (or re-arms) the quiet-period timer with a new callback.
func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
			return
		default:
			d.mu.Lock()
			cb := d.callback
			d.mu.Unlock()

			if cb != nil {
				cb()
			}
		}
	})
}

// stop cancels any pending callback. Idempotent; the debouncer cannot
// be reused afterwards.
func (d *debouncer) stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
