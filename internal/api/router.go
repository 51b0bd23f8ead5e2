package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// ah, if non-nil, accepts attachment uploads at POST /attachments.
func NewRouter(svc Publisher, authEnabled bool, token string, sseHandler http.Handler, ah *AttachmentHandler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	if authEnabled {
		r.Use(TokenAuth(token))
	}

	r.Post("/actions/{action}", h.Action)
	r.Post("/verify", h.Verify)
	r.Post("/preview", h.Preview)
	r.Post("/metadata/generate", h.GenerateMetadata)
	r.Post("/metadata/template", h.InsertTemplate)
	r.Get("/status", h.Status)

	if ah != nil && ah.up != nil {
		r.Post("/attachments", ah.Upload)
	}

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
