// Package uploader stores post images somewhere public and returns their URL.
package uploader

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/quailpub/internal/quail"
	"github.com/starford/quailpub/internal/storage"
)

// Attachment is one file to upload.
type Attachment struct {
	Name     string
	MimeType string
	Data     []byte
}

// Uploader stores an attachment and returns the URL it is served from.
type Uploader interface {
	Upload(ctx context.Context, a Attachment) (viewURL string, err error)
}

// Deps are the collaborators uploaders may need.
type Deps struct {
	Quail *quail.Client
	Store storage.Provider
}

// NewUploaderMap maps a configured type to its constructor.
var NewUploaderMap = map[string]func(ctx context.Context, cfg *Config, deps Deps) (Uploader, error){
	TypeQuail: NewQuailUploader,
	TypeS3:    NewS3Uploader,
	TypeB2:    NewB2Uploader,
	TypeLocal: NewLocalUploader,
}

// New builds the uploader selected by cfg.Type.
func New(ctx context.Context, cfg *Config, deps Deps) (Uploader, error) {
	typ := cfg.Type
	if typ == "" {
		typ = TypeQuail
	}
	ctor, ok := NewUploaderMap[typ]
	if !ok {
		return nil, fmt.Errorf("uploader: unsupported type %q", typ)
	}
	return ctor(ctx, cfg, deps)
}

var safeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// sanitizeName strips directories and unsafe characters from name.
func sanitizeName(name string) string {
	name = safeNameRe.ReplaceAllString(path.Base(strings.ReplaceAll(name, `\`, "/")), "_")
	if name == "" || name == "." || name == "_" {
		name = uuid.NewString()
	}
	return name
}

// objectKey returns a collision-free key keeping the extension of name.
func objectKey(prefix, name string) string {
	return prefix + uuid.NewString() + strings.ToLower(path.Ext(sanitizeName(name)))
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
