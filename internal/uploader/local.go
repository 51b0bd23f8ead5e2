package uploader

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/starford/quailpub/internal/checksum"
)

// LocalUploader copies attachments into the vault. quailpub serve exposes
// them under /attachments/.
type LocalUploader struct {
	cfg   LocalConfig
	store interface {
		Write(path string, content []byte) error
	}
}

// NewLocalUploader writes through the vault store.
func NewLocalUploader(_ context.Context, cfg *Config, deps Deps) (Uploader, error) {
	if deps.Store == nil {
		return nil, errors.New("uploader: vault store is required")
	}
	local := cfg.Local
	if local.Dir == "" {
		local.Dir = "attachments"
	}
	return &LocalUploader{cfg: local, store: deps.Store}, nil
}

// Upload implements Uploader. Files are named after their content, so
// uploading the same bytes twice yields the same URL.
func (u *LocalUploader) Upload(_ context.Context, a Attachment) (string, error) {
	file := checksum.Short(a.Data) + "-" + sanitizeName(a.Name)
	if err := u.store.Write(path.Join(u.cfg.Dir, file), a.Data); err != nil {
		return "", fmt.Errorf("upload %s locally: %w", a.Name, err)
	}
	return joinURL(u.cfg.PublicBase, "attachments/"+file), nil
}
