package ledger

import (
	"log/slog"

	"github.com/starford/quailpub/internal/storage"
)

// EventCallback is called after the ledger changes a post's flag.
// kind is one of "stale", "fresh", "missing".
type EventCallback func(kind string, path string)

// Sync compares every recorded post with its document on disk:
//   - a changed document marks the post stale
//   - a document restored to its saved content clears the flag
//   - a missing document marks the post stale and reports "missing"
func Sync(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	saved, err := db.AllChecksums()
	if err != nil {
		return err
	}
	if len(saved) == 0 {
		return nil
	}

	metas, err := store.List("")
	if err != nil {
		return err
	}
	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p, cs := range saved {
		current, ok := disk[p]
		kind := "fresh"
		switch {
		case !ok:
			kind = "missing"
		case current != cs:
			kind = "stale"
		}
		if err := db.MarkStale(p, kind != "fresh"); err != nil {
			logger.Warn("sync: mark failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		if kind == "fresh" {
			continue
		}
		logger.Debug("sync: post out of date", slog.String("path", p), slog.String("kind", kind))
		if cb != nil {
			cb(kind, p)
		}
	}
	return nil
}
