package fsprovider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jonwraymond/modelbake/observe"
)

// DefaultDebounce is the quiet period before changes are flushed.
const DefaultDebounce = 100 * time.Millisecond

// InvalidateFunc drops cached results for every variant of namespace:path.
// store.Store.InvalidateResource satisfies it.
type InvalidateFunc func(namespace, path string) int

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period after the last event.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatchLogger sets the watcher's logger.
func WithWatchLogger(l observe.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

type resourceRef struct {
	namespace, path string
}

// Watcher invalidates cached artifacts when pack files change. Events
// within the debounce window are coalesced per resource.
//
// Contract:
//   - Run must be called once; it returns nil when ctx is done.
//   - Files outside the pack layout are ignored.
type Watcher struct {
	fsw        *fsnotify.Watcher
	root       string
	invalidate InvalidateFunc
	debounce   time.Duration
	logger     observe.Logger
	started    atomic.Bool
}

// NewWatcher watches every directory under root.
func NewWatcher(root string, invalidate InvalidateFunc, opts ...WatcherOption) (*Watcher, error) {
	if invalidate == nil {
		return nil, ErrNilInvalidate
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("fsprovider: resolve root: %w", err)
	}
	if info, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("fsprovider: stat root: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("fsprovider: root %q is not a directory", abs)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsprovider: create watcher: %w", err)
	}

	w := &Watcher{
		fsw:        fsw,
		root:       abs,
		invalidate: invalidate,
		debounce:   DefaultDebounce,
		logger:     observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addTree(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("fsprovider: watcher already running")
	}
	defer func() { _ = w.fsw.Close() }()

	var (
		mu      sync.Mutex
		pending = map[resourceRef]struct{}{}
		timer   *time.Timer
	)

	flush := func() {
		if ctx.Err() != nil {
			return
		}
		mu.Lock()
		batch := pending
		pending = map[resourceRef]struct{}{}
		mu.Unlock()

		for ref := range batch {
			n := w.invalidate(ref.namespace, ref.path)
			w.logger.Debug(ctx, "pack file changed",
				observe.F("namespace", ref.namespace),
				observe.F("path", ref.path),
				observe.F("invalidated", n))
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("fsprovider: event channel closed")
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(ctx, evt.Name)
			}
			ref, ok := w.refFor(evt.Name)
			if !ok {
				continue
			}

			mu.Lock()
			pending[ref] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, flush)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("fsprovider: error channel closed")
			}
			w.logger.Warn(ctx, "watch error", observe.F("error", err.Error()))
		}
	}
}

// Close stops watching. It is safe to call after Run returned.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) refFor(name string) (resourceRef, bool) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil {
		return resourceRef{}, false
	}
	ns, p, ok := ResourceOf(filepath.ToSlash(rel))
	if !ok {
		return resourceRef{}, false
	}
	return resourceRef{namespace: ns, path: p}, true
}

func (w *Watcher) addTree(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // unreadable directories are skipped
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("fsprovider: watch %q: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("fsprovider: walk %q: %w", root, err)
	}
	return nil
}

// maybeAddDir extends the watch to directories created after startup.
func (w *Watcher) maybeAddDir(ctx context.Context, path string) {
	if err := w.addTree(path); err != nil {
		w.logger.Warn(ctx, "watch new directory", observe.F("error", err.Error()))
	}
}
