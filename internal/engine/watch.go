package engine

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch runs a full build, then watches the source tree and rebuilds
// changed files plus every file including them until ctx is done. Writes
// are debounced. fn receives the outcome of every build.
func (e *Engine) Watch(ctx context.Context, fn func(*BuildResult, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := e.watchDir(watcher, e.sourceDir); err != nil {
		return fmt.Errorf("failed to watch source dir: %w", err)
	}

	fn(e.Build(ctx, BuildOptions{}))
	e.logger.Info("watching for changes", "source_dir", e.sourceDir, "debounce", e.debounce)

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending = make(map[string]bool)
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			rel, ok := e.changedSource(watcher, event)
			if !ok {
				continue
			}
			pending[rel] = true

			if timer == nil {
				timer = time.NewTimer(e.debounce)
			} else {
				timer.Reset(e.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			// Dependents of a removed file are only known to the old graph.
			for _, id := range e.Graph().Affected(sortedKeys(pending)) {
				pending[id] = true
			}
			changed := sortedKeys(pending)
			clear(pending)

			e.logger.Debug("files changed, rebuilding", "files", changed)
			fn(e.Build(ctx, BuildOptions{Force: true, Changed: changed}))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Error("watcher error", "error", err)
		}
	}
}

// changedSource filters watcher events down to source file changes and
// starts watching directories created after the watch began.
func (e *Engine) changedSource(watcher *fsnotify.Watcher, event fsnotify.Event) (string, bool) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := e.watchDir(watcher, event.Name); err != nil {
				e.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
			}
			return "", false
		}
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return "", false
	}
	if filepath.Ext(event.Name) != SourceExt || isHidden(filepath.Base(event.Name)) {
		return "", false
	}
	rel, err := filepath.Rel(e.sourceDir, event.Name)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// watchDir adds a directory and all non-hidden subdirectories to the
// watcher.
func (e *Engine) watchDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
