// Package live keeps a running engine's identity graph fresh by watching
// the source files for changes.
package live

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/whosaid/whosaid/internal/engine"
)

// Watcher invalidates the engine whenever a watched source file changes,
// so the next query rebuilds the graph. Events are debounced: the
// messaging database is written in bursts.
type Watcher struct {
	Engine   *engine.Engine
	Paths    []string
	Debounce time.Duration
	Logf     func(format string, args ...any)
}

// NewWatcher watches the given source files for one engine.
func NewWatcher(eng *engine.Engine, paths ...string) *Watcher {
	return &Watcher{
		Engine:   eng,
		Paths:    paths,
		Debounce: 2 * time.Second,
	}
}

// Run blocks until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	logf := w.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch parent directories: SQLite WAL checkpoints and atomic
	// file replacement both surface as sibling-file events.
	watched := make(map[string]struct{})
	targets := make(map[string]struct{})
	for _, p := range w.Paths {
		if p == "" {
			continue
		}
		targets[filepath.Base(p)] = struct{}{}
		dir := filepath.Dir(p)
		if _, ok := watched[dir]; ok {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		watched[dir] = struct{}{}
		logf("Watching %s for changes (debounce: %s)", dir, w.Debounce)
	}
	if len(watched) == 0 {
		return fmt.Errorf("no source paths to watch")
	}

	var debounceTimer *time.Timer
	refresh := func() {
		w.Engine.Invalidate()
		logf("[%s] Source changed, identity graph will rebuild on next query", time.Now().Format("15:04:05"))
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event.Name, targets) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.Debounce, refresh)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logf("watch error: %v", err)
		}
	}
}

// relevant matches an event path against the watched source files,
// including SQLite -wal and -shm companions.
func (w *Watcher) relevant(name string, targets map[string]struct{}) bool {
	base := filepath.Base(name)
	for _, suffix := range []string{"", "-wal", "-shm"} {
		for t := range targets {
			if base == t+suffix {
				return true
			}
		}
	}
	return false
}
