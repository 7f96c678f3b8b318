// Package watch reports documents that appear in a directory.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/poiesic/docchat/extract"
)

// DefaultDebounce is how long a file must stay quiet before it is reported.
const DefaultDebounce = 500 * time.Millisecond

// Watcher emits the paths of supported documents created or written in a
// directory. A burst of writes to one file is reported once.
type Watcher struct {
	watcher    *fsnotify.Watcher
	extensions []string
	debounce   time.Duration
	logger     *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithExtensions limits reported files to the given extensions.
// Default is extract.SupportedExtensions().
func WithExtensions(extensions ...string) Option {
	return func(w *Watcher) {
		if len(extensions) > 0 {
			w.extensions = extensions
		}
	}
}

// WithDebounce sets how long a file must stay quiet before it is reported.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a new file watcher.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:    fsw,
		extensions: extract.SupportedExtensions(),
		debounce:   DefaultDebounce,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "watch")
	return w, nil
}

// Watch starts monitoring dir. The returned channel is closed when ctx is
// done or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan string, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	paths := make(chan string, 16)
	go w.run(ctx, paths)
	return paths, nil
}

func (w *Watcher) run(ctx context.Context, paths chan<- string) {
	defer close(paths)

	// pending maps a path to the time it was last touched.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.tickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !w.isWatchedExtension(event.Name) {
				continue
			}
			pending[event.Name] = time.Now()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "err", err)
		case now := <-ticker.C:
			for _, path := range w.settled(pending, now) {
				select {
				case paths <- path:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// minTick bounds how often pending paths are checked.
const minTick = time.Millisecond

// tickInterval is half the debounce, but never below minTick.
func (w *Watcher) tickInterval() time.Duration {
	return max(w.debounce/2, minTick)
}

// settled removes and returns, in sorted order, the paths that have been
// quiet for the debounce period.
func (w *Watcher) settled(pending map[string]time.Time, now time.Time) []string {
	var ready []string
	for path, touched := range pending {
		if now.Sub(touched) >= w.debounce {
			ready = append(ready, path)
			delete(pending, path)
		}
	}
	slices.Sort(ready)
	return ready
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// isWatchedExtension checks if the file has a watched extension.
func (w *Watcher) isWatchedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(w.extensions, ext)
}
