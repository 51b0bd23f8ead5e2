package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/quailpub/internal/apperr"
	"github.com/starford/quailpub/internal/document"
	"github.com/starford/quailpub/internal/frontmatter"
	"github.com/starford/quailpub/internal/quail"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusOf maps a publisher error to an HTTP status.
func statusOf(err error) int {
	var apiErr *quail.APIError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrBusy), errors.Is(err, apperr.ErrFrontmatterExists):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrVerification),
		errors.Is(err, apperr.ErrNoFrontmatter),
		errors.Is(err, frontmatter.ErrEmptySlug),
		errors.Is(err, document.ErrInvalidFrontmatter):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrUpload), errors.As(err, &apiErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError writes err with the status it maps to. Internal errors are
// logged and hidden from the client.
func writeError(w http.ResponseWriter, err error, attrs ...any) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", append(attrs, slog.String("error", err.Error()))...)
		writeJSON(w, status, errorBody("internal error"))
		return
	}
	writeJSON(w, status, errorBody(err.Error()))
}
