package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a watcher-driven cache change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the content root and feeds file change
// events into targeted invalidation until ctx is cancelled. It calls cb (if
// non-nil) after each cache mutation.
//
// The watcher is a convenience on top of reconciliation, not a correctness
// requirement: anything it misses is caught by the next full sync. New
// directories created at runtime are added to the watch list; rename events
// schedule a debounced full pass because fsnotify only reports the old path.
func Watch(ctx context.Context, syncer *Syncer, contentRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, contentRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", contentRoot))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if _, syncErr := syncer.Sync(false); syncErr != nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", syncErr.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					// Pick up any .md files the directory arrived with.
					invalidateDir(syncer, absPath, logger, cb)
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if invErr := syncer.Invalidate(absPath); invErr != nil {
					logger.Warn("watcher: invalidate failed", slog.String("path", absPath), slog.String("error", invErr.Error()))
					continue
				}
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				logger.Debug("watcher: invalidated", slog.String("path", absPath), slog.String("op", kind))
				if cb != nil {
					cb(kind, absPath)
				}

			case ev.Op&fsnotify.Remove != 0:
				if invErr := syncer.Invalidate(absPath); invErr != nil {
					logger.Warn("watcher: remove failed", slog.String("path", absPath), slog.String("error", invErr.Error()))
					continue
				}
				logger.Debug("watcher: removed", slog.String("path", absPath))
				if cb != nil {
					cb("deleted", absPath)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only; the new path
				// arrives as a separate Create if it stays under the root.
				if invErr := syncer.Invalidate(absPath); invErr == nil {
					if cb != nil {
						cb("deleted", absPath)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// invalidateDir invalidates every .md file under a newly created directory.
func invalidateDir(syncer *Syncer, dirPath string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		if invErr := syncer.Invalidate(path); invErr == nil {
			logger.Debug("watcher: indexed from new dir", slog.String("path", path))
			if cb != nil {
				cb("created", path)
			}
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
