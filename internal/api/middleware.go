// Package api implements the Langthil REST API using chi.
package api

import (
	"context"
	"net/http"
	"strings"
)

type editorKey struct{}

// EditorMiddleware marks requests that may edit. With auth disabled every
// request is an editor; otherwise the request must carry
// "Authorization: Bearer <token>". Readers pass through either way.
func EditorMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			editor := !enabled
			if enabled {
				auth := r.Header.Get("Authorization")
				editor = strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == token
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), editorKey{}, editor)))
		})
	}
}

// IsEditor reports whether EditorMiddleware accepted the request as an editor.
func IsEditor(ctx context.Context) bool {
	editor, _ := ctx.Value(editorKey{}).(bool)
	return editor
}

// RequireEditor rejects requests from readers.
func RequireEditor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsEditor(r.Context()) {
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
