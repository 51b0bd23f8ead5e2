package ledger

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

	"github.com/starford/quailpub/internal/apperr"
	"github.com/starford/quailpub/internal/checksum"
	"github.com/starford/quailpub/internal/storage"
)

// Watch starts an fsnotify watcher on the vault root and flags recorded
// posts whose documents change until ctx is cancelled. cb (if non-nil) is
// called after each flag change.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a debounced Sync pass, since fsnotify reports only the old
// path.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, vaultRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

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
			if err := Sync(db, store, logger, cb); err != nil {
				logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
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
					scheduleReconcile()
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") {
				continue
			}

			rel, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				checkDocument(db, store, rel, logger, cb)

			case ev.Op&fsnotify.Remove != 0:
				markMissing(db, rel, logger, cb)

			case ev.Op&fsnotify.Rename != 0:
				markMissing(db, rel, logger, cb)
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

// checkDocument compares the document at rel with its recorded checksum.
func checkDocument(db *DB, store storage.Provider, rel string, logger *slog.Logger, cb EventCallback) {
	post, err := db.GetPost(rel)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			logger.Warn("watcher: lookup failed", slog.String("path", rel), slog.String("error", err.Error()))
		}
		return
	}
	data, err := store.Read(rel)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	stale := checksum.Sum(data) != post.Checksum
	if stale == post.Stale {
		return
	}
	if err := db.MarkStale(rel, stale); err != nil {
		logger.Warn("watcher: mark failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	logger.Debug("watcher: post flag changed", slog.String("path", rel), slog.Bool("stale", stale))
	if cb != nil {
		kind := "stale"
		if !stale {
			kind = "fresh"
		}
		cb(kind, rel)
	}
}

func markMissing(db *DB, rel string, logger *slog.Logger, cb EventCallback) {
	if err := db.MarkStale(rel, true); err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			logger.Warn("watcher: mark failed", slog.String("path", rel), slog.String("error", err.Error()))
		}
		return
	}
	logger.Debug("watcher: document gone", slog.String("path", rel))
	if cb != nil {
		cb("missing", rel)
	}
}

// addDirsRecursive adds root and all its non-hidden subdirectories.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
