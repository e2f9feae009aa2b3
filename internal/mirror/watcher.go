package mirror

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/langthil/internal/storage"
)

const reconcileDelay = 200 * time.Millisecond

// Watch imports vault files as they change until ctx is cancelled. New
// directories are watched as they appear. Removing a file never removes its
// article; renames trigger a debounced Sync that picks up the new name.
func (m *Mirror) Watch(ctx context.Context) error {
	root := m.fs.Root()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	m.logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			m.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if _, err := m.Sync(ctx); err != nil {
				m.logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			m.handle(ctx, w, ev, scheduleReconcile)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (m *Mirror) handle(ctx context.Context, w *fsnotify.Watcher, ev fsnotify.Event, reconcile func()) {
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := addDirsRecursive(w, ev.Name); err != nil {
				m.logger.Warn("watcher: add new dir failed",
					slog.String("path", ev.Name),
					slog.String("error", err.Error()))
			}
			// Files may land before the directory is watched.
			reconcile()
			return
		}
	}

	if !storage.IsArticleFile(ev.Name) {
		return
	}
	rel, err := m.fs.Rel(ev.Name)
	if err != nil {
		return
	}

	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		imported, err := m.importIfChanged(ctx, rel)
		if err != nil {
			m.logger.Warn("watcher: import failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		if imported {
			m.logger.Debug("watcher: imported", slog.String("path", rel))
		}

	case ev.Op&fsnotify.Remove != 0:
		if err := m.sums.DeleteVaultChecksum(ctx, rel); err != nil {
			m.logger.Warn("watcher: forget failed", slog.String("path", rel), slog.String("error", err.Error()))
		}

	case ev.Op&fsnotify.Rename != 0:
		reconcile()
	}
}

// addDirsRecursive adds root and its visible subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && filepath.Base(p)[0] == '.' {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
