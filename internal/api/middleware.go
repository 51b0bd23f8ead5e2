// Package api implements the quailpub REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// TokenQueryParam carries the API token for clients that cannot set headers,
// such as a browser EventSource subscribed to /events.
const TokenQueryParam = "access_token"

// TokenAuth rejects requests that do not present token. Every method accepts
// an "Authorization: Bearer" header; GET requests may pass the token in the
// access_token query parameter instead.
func TokenAuth(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if subtle.ConstantTimeCompare([]byte(presented(r)), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="quailpub"`)
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presented(r *http.Request) string {
	if scheme, cred, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(cred)
	}
	if r.Method == http.MethodGet {
		return r.URL.Query().Get(TokenQueryParam)
	}
	return ""
}
