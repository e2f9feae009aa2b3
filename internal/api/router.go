package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/langthil/internal/wiki"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether editing needs a Bearer token.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *wiki.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(EditorMiddleware(authEnabled, token))

	// Reading.
	r.Get("/wiki/*", h.View)
	r.Post("/wiki/*", h.ConfirmNSFW)
	r.Get("/articles", h.ListArticles)
	r.Get("/tags", h.ListTags)
	r.Get("/tags/{slug}", h.TagPage)
	r.Get("/search", h.Search)
	r.Get("/backlinks/*", h.Backlinks)
	r.Get("/glossary", h.Glossary)
	r.Post("/preview", h.Preview)

	// Editing.
	r.Group(func(r chi.Router) {
		r.Use(RequireEditor)
		r.Get("/new/*", h.NewDraft)
		r.Post("/articles", h.CreateArticle)
		r.Put("/articles/{id}", h.UpdateArticle)
		r.Post("/articles/{id}/move", h.MoveArticle)
		r.Put("/tags/{slug}", h.UpdateTag)
		r.Post("/glossary", h.CreateTerm)
		r.Put("/glossary/{id}", h.UpdateTerm)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
