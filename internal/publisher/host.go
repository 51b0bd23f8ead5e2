package publisher

import (
	"context"
	"path"
	"strings"

	"github.com/starford/quailpub/internal/document"
	"github.com/starford/quailpub/internal/models"
	"github.com/starford/quailpub/internal/storage"
)

// vaultHost is the vault as seen from one document.
type vaultHost struct {
	store storage.Provider
	snap  *document.Snapshot
}

// ResolvePath looks target up next to the document first, then from the
// vault root. A leading "/" names the vault root only.
func (h *vaultHost) ResolvePath(target string) (models.File, bool) {
	target = strings.TrimPrefix(strings.ReplaceAll(target, `\`, "/"), "./")
	if target == "" {
		return models.File{}, false
	}
	var candidates []string
	if !strings.HasPrefix(target, "/") {
		candidates = append(candidates, path.Join(h.snap.Dir(), target))
	}
	if root := path.Clean(strings.TrimLeft(target, "/")); len(candidates) == 0 || root != candidates[0] {
		candidates = append(candidates, root)
	}
	for _, c := range candidates {
		if f, err := h.store.Stat(c); err == nil {
			return f, true
		}
	}
	return models.File{}, false
}

// LinkedFiles returns the vault files the document's wikilinks may name.
func (h *vaultHost) LinkedFiles(_ context.Context) ([]models.File, error) {
	if len(h.snap.Links) == 0 {
		return nil, nil
	}
	files, err := h.store.ListFiles("")
	if err != nil {
		return nil, err
	}
	var out []models.File
	for _, f := range files {
		for _, l := range h.snap.Links {
			l = strings.TrimPrefix(l, "./")
			if f.Path == l || f.Name == l || strings.HasSuffix(f.Path, "/"+l) {
				out = append(out, f)
				break
			}
		}
	}
	return out, nil
}

func (h *vaultHost) ReadBinary(_ context.Context, f models.File) ([]byte, error) {
	return h.store.Read(f.Path)
}
