package uploader

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/quailpub/internal/quail"
)

type attachmentClient interface {
	UploadAttachment(ctx context.Context, data []byte, mimeType, name string) (*quail.Attachment, error)
}

// QuailUploader hands attachments to the Quail attachment endpoint.
type QuailUploader struct {
	client attachmentClient
}

// NewQuailUploader is the default uploader.
func NewQuailUploader(_ context.Context, _ *Config, deps Deps) (Uploader, error) {
	if deps.Quail == nil {
		return nil, errors.New("uploader: quail client is required")
	}
	return &QuailUploader{client: deps.Quail}, nil
}

// Upload implements Uploader.
func (u *QuailUploader) Upload(ctx context.Context, a Attachment) (string, error) {
	att, err := u.client.UploadAttachment(ctx, a.Data, a.MimeType, a.Name)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", a.Name, err)
	}
	return att.ViewURL, nil
}
