// Package watch reruns work when files change. It watches directory trees
// with fsnotify and coalesces bursts of events into a single callback.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/taskgrid/internal/ctxlog"
)

// DefaultDebounce is how long the tree must stay quiet before a change fires.
const DefaultDebounce = 300 * time.Millisecond

// DefaultIgnore lists directory names that are never watched. Hidden
// directories are always skipped as well.
var DefaultIgnore = []string{"target", "node_modules"}

// Options configure a Watcher.
type Options struct {
	Debounce time.Duration
	Ignore   []string
}

// Watcher watches one or more directory trees.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	ignore   []string
}

// New creates a Watcher over paths, adding every non-ignored directory below
// each of them.
func New(paths []string, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{fs: fsw, debounce: opts.Debounce, ignore: opts.Ignore}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.ignore == nil {
		w.ignore = DefaultIgnore
	}
	if len(paths) == 0 {
		paths = []string{"."}
	}
	for _, p := range paths {
		if err := w.addTree(p); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) skipDir(name string) bool {
	base := filepath.Base(name)
	if base != "." && base != ".." && strings.HasPrefix(base, ".") {
		return true
	}
	return slices.Contains(w.ignore, base)
}

// skipEvent reports whether an event on name is noise. Ignored directories
// are never added, so only the base name needs checking.
func (w *Watcher) skipEvent(name string) bool {
	return w.skipDir(name)
}

func (w *Watcher) addTree(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("cannot watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return w.fs.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.skipDir(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("cannot watch %s: %w", path, err)
		}
		return nil
	})
}

// Run blocks until ctx is done, calling onChange with the sorted set of
// changed paths after each quiet period. onChange runs on the watch loop, so
// events that arrive meanwhile are batched into the next call. Run closes
// the underlying watcher before returning.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, paths []string)) error {
	logger := ctxlog.FromContext(ctx).With("component", "watch")
	defer w.fs.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Watcher stopped.")
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return errors.New("file watcher event channel closed")
			}
			if ev.Op == fsnotify.Chmod || w.skipEvent(ev.Name) {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !w.skipDir(ev.Name) {
					if err := w.addTree(ev.Name); err != nil {
						logger.Warn("Failed to watch new directory.", "path", ev.Name, "error", err)
					}
				}
			}
			logger.Debug("File event.", "op", ev.Op.String(), "path", ev.Name)
			pending[ev.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return errors.New("file watcher error channel closed")
			}
			logger.Error("File watcher error.", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			slices.Sort(paths)
			clear(pending)
			onChange(ctx, paths)
		}
	}
}

// Close releases the watcher without running it.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
