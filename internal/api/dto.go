package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/starford/quailpub/internal/frontmatter"
	"github.com/starford/quailpub/internal/ledger"
	"github.com/starford/quailpub/internal/publisher"
)

const maxRequestBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// DocumentRequest names a vault document.
type DocumentRequest struct {
	Path string `json:"path" example:"notes/hello.md" validate:"required,endswith=.md"`
}

// ActionResponse is the outcome of save, publish, unpublish or deliver.
type ActionResponse = publisher.Result

// VerifyResponse reports whether a document's frontmatter is publishable.
type VerifyResponse = frontmatter.Verification

// PreviewResponse is the payload that would be sent to Quail.
type PreviewResponse = frontmatter.Payload

// FrontmatterResponse carries a document's rewritten frontmatter.
type FrontmatterResponse struct {
	Path        string             `json:"path" validate:"required"`
	Frontmatter frontmatter.Record `json:"frontmatter" validate:"required"`
}

// StatusResponse lists the posts recorded in the ledger.
type StatusResponse struct {
	Posts []ledger.PostRow `json:"posts" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"image.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"https://cdn.example/image.png" validate:"required"`
}

// decodeRequest reads a JSON body into v and validates it.
func decodeRequest(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	if err := validate.Struct(v); err != nil {
		return err
	}
	return nil
}
