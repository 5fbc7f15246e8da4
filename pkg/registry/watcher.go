package registry

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/goliatone/go-fieldtree/pkg/model"
	"github.com/goliatone/go-fieldtree/pkg/schema"
)

const defaultDebounce = 100 * time.Millisecond

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatchPattern sets the doublestar pattern used to select documents.
func WithWatchPattern(pattern string) WatcherOption {
	return func(w *Watcher) {
		w.pattern = pattern
	}
}

// WithDebounce sets how long the watcher waits after the last filesystem
// event before reloading.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger used to report reloads.
func WithLogger(logger *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// Watcher serves a registry loaded from a directory and reloads it when the
// directory changes. A failed reload keeps the previous snapshot.
type Watcher struct {
	dir      string
	pattern  string
	debounce time.Duration
	logger   *zap.Logger

	current atomic.Pointer[Memory]
	mu      sync.Mutex
}

var _ schema.Snapshotter = (*Watcher)(nil)

// NewWatcher loads dir once and returns a watcher serving that snapshot.
// Call Run to start following changes.
func NewWatcher(dir string, options ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		dir:      dir,
		pattern:  DefaultPattern,
		debounce: defaultDebounce,
		logger:   zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(w)
		}
	}
	if err := w.Reload(); err != nil {
		return nil, err
	}
	return w, nil
}

// Reload re-reads the directory and swaps the snapshot on success.
func (w *Watcher) Reload() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	next, err := LoadFS(os.DirFS(w.dir), WithPattern(w.pattern))
	if err != nil {
		return err
	}
	w.current.Store(next)
	return nil
}

// Run follows filesystem events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("registry: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, w.dir); err != nil {
		return err
	}

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addRecursive(watcher, event.Name)
				}
			}
			w.logger.Debug("registry change detected", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			timer.Reset(w.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("registry watcher error", zap.Error(err))
		case <-timer.C:
			if err := w.Reload(); err != nil {
				w.logger.Error("registry reload failed, keeping previous snapshot", zap.Error(err))
				continue
			}
			w.logger.Info("registry reloaded", zap.String("dir", w.dir))
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("registry: watch %s: %w", path, err)
		}
		return nil
	})
}

// Snapshot implements schema.Snapshotter: the returned registry keeps
// serving the groups loaded at the time of the call.
func (w *Watcher) Snapshot() schema.Registry {
	current := w.current.Load()
	if current == nil {
		return nil
	}
	return current
}

// FieldGroups implements schema.Registry.
func (w *Watcher) FieldGroups(ctx context.Context) ([]model.FieldGroup, error) {
	return w.current.Load().FieldGroups(ctx)
}

// FieldsInGroup implements schema.Registry.
func (w *Watcher) FieldsInGroup(ctx context.Context, groupID string) ([]model.FieldDefinition, error) {
	return w.current.Load().FieldsInGroup(ctx, groupID)
}

// IsGroupApplicable implements schema.Registry.
func (w *Watcher) IsGroupApplicable(ctx context.Context, groupID, contentType string) (bool, error) {
	return w.current.Load().IsGroupApplicable(ctx, groupID, contentType)
}
