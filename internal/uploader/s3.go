package uploader

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Uploader puts attachments into an S3 compatible bucket.
type S3Uploader struct {
	client *minio.Client
	cfg    S3Config
}

// NewS3Uploader connects to the configured endpoint.
func NewS3Uploader(_ context.Context, cfg *Config, _ Deps) (Uploader, error) {
	s3cfg := cfg.S3
	client, err := minio.New(s3cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s3cfg.AccessKey, s3cfg.SecretKey, ""),
		Secure: s3cfg.Secure,
		Region: s3cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("uploader: s3 client: %w", err)
	}
	return &S3Uploader{client: client, cfg: s3cfg}, nil
}

// Upload implements Uploader.
func (u *S3Uploader) Upload(ctx context.Context, a Attachment) (string, error) {
	key := objectKey(u.cfg.Prefix, a.Name)
	_, err := u.client.PutObject(ctx, u.cfg.Bucket, key, bytes.NewReader(a.Data), int64(len(a.Data)), minio.PutObjectOptions{
		ContentType: a.MimeType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to s3: %w", a.Name, err)
	}
	return joinURL(u.cfg.PublicBase, key), nil
}
