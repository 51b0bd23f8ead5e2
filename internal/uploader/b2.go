package uploader

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/Backblaze/blazer/b2"
)

// B2Uploader writes attachments to a Backblaze B2 bucket.
type B2Uploader struct {
	bucket *b2.Bucket
	cfg    B2Config
}

// NewB2Uploader authorizes against B2 and opens the configured bucket.
func NewB2Uploader(ctx context.Context, cfg *Config, _ Deps) (Uploader, error) {
	b2cfg := cfg.B2
	client, err := b2.NewClient(ctx, b2cfg.KeyID, b2cfg.ApplicationKey)
	if err != nil {
		return nil, fmt.Errorf("uploader: b2 client: %w", err)
	}
	bucket, err := client.Bucket(ctx, b2cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("uploader: b2 bucket %s: %w", b2cfg.Bucket, err)
	}
	return &B2Uploader{bucket: bucket, cfg: b2cfg}, nil
}

// Upload implements Uploader.
func (u *B2Uploader) Upload(ctx context.Context, a Attachment) (string, error) {
	key := objectKey(u.cfg.Prefix, a.Name)
	w := u.bucket.Object(key).NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{
		ContentType: a.MimeType,
		Info:        map[string]string{"original-name": sanitizeName(a.Name)},
	}))
	if _, err := io.Copy(w, bytes.NewReader(a.Data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s to b2: %w", a.Name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("upload %s to b2: %w", a.Name, err)
	}
	return joinURL(u.cfg.PublicBase, key), nil
}
