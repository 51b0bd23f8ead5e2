package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler holds API route handlers.
type Handler struct {
	svc     Publisher
	actions map[string]actionFunc
}

// NewHandler creates a new Handler.
func NewHandler(svc Publisher) *Handler {
	return &Handler{svc: svc, actions: actions(svc)}
}

// Action handles POST /api/actions/{action}.
//
//	@Summary		Save, publish, unpublish or deliver a document
//	@Tags			actions
//	@Accept			json
//	@Produce		json
//	@Param			action	path		string			true	"Action"	Enums(save, publish, unpublish, deliver)
//	@Param			body	body		DocumentRequest	true	"Document"
//	@Success		200		{object}	ActionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/actions/{action} [post]
func (h *Handler) Action(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "action")
	call, ok := h.actions[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("unknown action: "+name))
		return
	}
	var req DocumentRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	res, err := call(r.Context(), req.Path)
	if err != nil {
		writeError(w, err, slog.String("action", name), slog.String("path", req.Path))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Verify handles POST /api/verify.
//
//	@Summary		Validate a document's frontmatter
//	@Tags			frontmatter
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DocumentRequest	true	"Document"
//	@Success		200		{object}	VerifyResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/verify [post]
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	v, err := h.svc.Verify(r.Context(), req.Path)
	if err != nil {
		writeError(w, err, slog.String("path", req.Path))
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Preview handles POST /api/preview.
//
//	@Summary		Formalize a document without uploading or publishing
//	@Tags			frontmatter
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DocumentRequest	true	"Document"
//	@Success		200		{object}	PreviewResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/preview [post]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	p, err := h.svc.Preview(r.Context(), req.Path)
	if err != nil {
		writeError(w, err, slog.String("path", req.Path))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GenerateMetadata handles POST /api/metadata/generate.
//
//	@Summary		Replace slug, summary and tags with composer suggestions
//	@Tags			frontmatter
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DocumentRequest	true	"Document"
//	@Success		200		{object}	FrontmatterResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/metadata/generate [post]
func (h *Handler) GenerateMetadata(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	rec, err := h.svc.GenerateMetadata(r.Context(), req.Path)
	if err != nil {
		writeError(w, err, slog.String("path", req.Path))
		return
	}
	writeJSON(w, http.StatusOK, FrontmatterResponse{Path: req.Path, Frontmatter: rec})
}

// InsertTemplate handles POST /api/metadata/template.
//
//	@Summary		Prepend a frontmatter template to a document
//	@Tags			frontmatter
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DocumentRequest	true	"Document"
//	@Success		201		{object}	FrontmatterResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/metadata/template [post]
func (h *Handler) InsertTemplate(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if err := decodeRequest(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	rec, err := h.svc.InsertTemplate(r.Context(), req.Path)
	if err != nil {
		writeError(w, err, slog.String("path", req.Path))
		return
	}
	writeJSON(w, http.StatusCreated, FrontmatterResponse{Path: req.Path, Frontmatter: rec})
}

// Status handles GET /api/status.
//
//	@Summary		List recorded posts
//	@Tags			status
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	posts, err := h.svc.Status(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Posts: posts})
}
