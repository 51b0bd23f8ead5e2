package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quailpub/internal/mime"
	"github.com/starford/quailpub/internal/uploader"
)

const maxUploadBytes = 50 << 20 // 50 MB

// AttachmentHandler serves files stored by the local uploader and accepts
// uploads through the configured uploader.
type AttachmentHandler struct {
	dir string
	up  uploader.Uploader
}

// NewAttachmentHandler creates a handler serving files from dir. up may be
// nil when uploads are not offered.
func NewAttachmentHandler(dir string, up uploader.Uploader) *AttachmentHandler {
	return &AttachmentHandler{dir: dir, up: up}
}

// safeName validates that the filename is a plain name (no path separators,
// no traversal) and returns its absolute path under dir.
func (h *AttachmentHandler) safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	abs := filepath.Join(h.dir, cleaned)
	if !strings.HasPrefix(abs, h.dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes attachments directory")
	}
	return abs, nil
}

// ServeFile handles GET /attachments/{filename}.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, err := h.safeName(chi.URLParam(r, "filename"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if info, statErr := os.Stat(abs); statErr != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/attachments (multipart/form-data, field "file").
//
//	@Summary		Upload an image through the configured uploader
//	@Tags			attachments
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Image"
//	@Success		201		{object}	AttachmentUploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/attachments [post]
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name := filepath.Base(filepath.Clean(header.Filename))
	mimeType, ok := mime.FromName(name)
	if !ok {
		writeJSON(w, http.StatusUnsupportedMediaType, errorBody("unsupported image type: "+name))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	viewURL, err := h.up.Upload(r.Context(), uploader.Attachment{Name: name, MimeType: mimeType, Data: data})
	if err != nil {
		slog.Error("attachment upload failed", slog.String("name", name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errorBody("upload failed"))
		return
	}

	writeJSON(w, http.StatusCreated, AttachmentUploadResponse{
		Filename: name,
		Size:     int64(len(data)),
		URL:      viewURL,
	})
}
