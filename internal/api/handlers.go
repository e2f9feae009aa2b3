package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/wiki"
	"github.com/starford/langthil/internal/wikipath"
)

const (
	nsfwCookie     = "show_nsfw"
	nsfwCookieLife = 365 * 24 * 60 * 60
)

// Handler holds API route handlers.
type Handler struct {
	svc *wiki.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *wiki.Service) *Handler {
	return &Handler{svc: svc}
}

// rawPath extracts everything after the route prefix. Supports encoded
// slashes from OpenAPI clients (e.g. lore%2Fdragons).
func rawPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// wikiPath parses the wildcard path, answering 400 when it is missing or invalid.
func wikiPath(w http.ResponseWriter, r *http.Request) (wikipath.WikiPath, bool) {
	raw := rawPath(r)
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return wikipath.WikiPath{}, false
	}
	p, err := wikipath.Parse(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return wikipath.WikiPath{}, false
	}
	return p, true
}

func flag(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// View handles GET /api/wiki/*.
//
//	@Summary		View the article at a wiki path
//	@Tags			wiki
//	@Produce		json
//	@Param			path		path		string	true	"Wiki path"
//	@Param			redirect	query		string	false	"Set to 'no' to show a redirect article itself"
//	@Param			preview		query		bool	false	"Include unpublished articles"
//	@Param			show_nsfw	query		bool	false	"Show content behind the NSFW gate"
//	@Success		200			{object}	PageResponse
//	@Success		302			{object}	PageResponse
//	@Failure		404			{object}	PageResponse
//	@Router			/wiki/{path} [get]
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	h.view(w, r, false)
}

// ConfirmNSFW handles POST /api/wiki/*: the reader confirms the content
// warning, optionally remembering the choice in a cookie.
//
//	@Summary		Confirm the content warning and view the article
//	@Tags			wiki
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			path		path		string	true	"Wiki path"
//	@Param			show_me		formData	bool	false	"Show the gated content"
//	@Param			remember	formData	bool	false	"Remember the choice"
//	@Success		200			{object}	PageResponse
//	@Router			/wiki/{path} [post]
func (h *Handler) ConfirmNSFW(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid form body"))
		return
	}
	show := flag(r.PostForm.Get("show_me"))
	if show && flag(r.PostForm.Get("remember")) {
		http.SetCookie(w, &http.Cookie{
			Name:     nsfwCookie,
			Value:    "1",
			Path:     "/",
			MaxAge:   nsfwCookieLife,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	h.view(w, r, show)
}

func (h *Handler) view(w http.ResponseWriter, r *http.Request, showNSFW bool) {
	p, ok := wikiPath(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if !showNSFW {
		showNSFW = flag(q.Get(nsfwCookie))
		if c, err := r.Cookie(nsfwCookie); err == nil && flag(c.Value) {
			showNSFW = true
		}
	}

	page, err := h.svc.View(r.Context(), wiki.ViewRequest{
		Path:       p,
		Editor:     IsEditor(r.Context()),
		Preview:    flag(q.Get("preview")),
		NoRedirect: strings.EqualFold(q.Get("redirect"), "no"),
		ShowNSFW:   showNSFW,
	})
	if err != nil {
		writeError(w, "view", err)
		return
	}

	resp := newPageResponse(page)
	switch {
	case resp.RedirectURL != "":
		w.Header().Set("Location", resp.RedirectURL)
		writeJSON(w, http.StatusFound, resp)
	case resp.NotFound:
		writeJSON(w, http.StatusNotFound, resp)
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

// NewDraft handles GET /api/new/*.
//
//	@Summary		Prepare a new article at a wiki path
//	@Tags			articles
//	@Produce		json
//	@Param			path	path		string	true	"Wiki path"
//	@Success		200		{object}	models.Article
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/new/{path} [get]
func (h *Handler) NewDraft(w http.ResponseWriter, r *http.Request) {
	p, ok := wikiPath(w, r)
	if !ok {
		return
	}
	draft, err := h.svc.NewArticleDraft(r.Context(), p)
	if err != nil {
		writeError(w, "new draft", err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// ListArticles handles GET /api/articles.
//
//	@Summary		List published articles
//	@Tags			articles
//	@Produce		json
//	@Param			namespace	query		string	false	"Namespace prefix"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	ArticleListResponse
//	@Router			/articles [get]
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListArticles(r.Context(), q.Get("namespace"), limit, offset)
	if err != nil {
		writeError(w, "list articles", err)
		return
	}
	if items == nil {
		items = []models.Article{}
	}
	writeJSON(w, http.StatusOK, ArticleListResponse{Articles: items, Total: total})
}

// CreateArticle handles POST /api/articles.
//
//	@Summary		Create an article
//	@Tags			articles
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ArticleRequest	true	"Article to create"
//	@Success		201		{object}	models.Article
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles [post]
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req ArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.svc.CreateArticle(r.Context(), req.input())
	if err != nil {
		writeError(w, "create article", err)
		return
	}
	w.Header().Set("Location", "/api"+a.URL())
	writeJSON(w, http.StatusCreated, a)
}

// UpdateArticle handles PUT /api/articles/{id}.
//
//	@Summary		Update an article
//	@Tags			articles
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Article ID"
//	@Param			body	body		ArticleRequest	true	"Article fields"
//	@Success		200		{object}	models.Article
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id} [put]
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	var req ArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.svc.UpdateArticle(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(w, "update article", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// MoveArticle handles POST /api/articles/{id}/move.
//
//	@Summary		Move an article, leaving a redirect at the old path
//	@Tags			articles
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Article ID"
//	@Param			body	body		MoveRequest	true	"Destination"
//	@Success		200		{object}	MoveResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{id}/move [post]
func (h *Handler) MoveArticle(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	dest, err := wikipath.Parse(req.Path)
	if err != nil {
		writeError(w, "move article", err)
		return
	}
	a, stub, err := h.svc.Move(r.Context(), chi.URLParam(r, "id"), dest)
	if err != nil {
		writeError(w, "move article", err)
		return
	}
	writeJSON(w, http.StatusOK, MoveResponse{Article: a, Redirect: stub})
}

// ListTags handles GET /api/tags.
//
//	@Summary		List tags
//	@Tags			tags
//	@Produce		json
//	@Success		200	{object}	TagListResponse
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListTags(r.Context())
	if err != nil {
		writeError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

// TagPage handles GET /api/tags/{slug}.
//
//	@Summary		Get a tag with its articles
//	@Tags			tags
//	@Produce		json
//	@Param			slug	path		string	true	"Tag slug"
//	@Success		200		{object}	wiki.TagPage
//	@Failure		404		{object}	errResponse
//	@Router			/tags/{slug} [get]
func (h *Handler) TagPage(w http.ResponseWriter, r *http.Request) {
	tp, err := h.svc.TagPage(r.Context(), chi.URLParam(r, "slug"), !IsEditor(r.Context()))
	if err != nil {
		writeError(w, "tag page", err)
		return
	}
	writeJSON(w, http.StatusOK, tp)
}

// UpdateTag handles PUT /api/tags/{slug}.
//
//	@Summary		Edit a tag
//	@Tags			tags
//	@Accept			json
//	@Produce		json
//	@Param			slug	path		string		true	"Tag slug"
//	@Param			body	body		TagRequest	true	"Tag fields"
//	@Success		200		{object}	models.Tag
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags/{slug} [put]
func (h *Handler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.UpdateTag(r.Context(), chi.URLParam(r, "slug"), wiki.TagInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, "update tag", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Glossary handles GET /api/glossary.
//
//	@Summary		List glossary terms
//	@Tags			glossary
//	@Produce		json
//	@Success		200	{object}	GlossaryResponse
//	@Router			/glossary [get]
func (h *Handler) Glossary(w http.ResponseWriter, r *http.Request) {
	terms, err := h.svc.Glossary(r.Context())
	if err != nil {
		writeError(w, "glossary", err)
		return
	}
	writeJSON(w, http.StatusOK, GlossaryResponse{Terms: terms})
}

// CreateTerm handles POST /api/glossary.
//
//	@Summary		Add a glossary term
//	@Tags			glossary
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TermRequest	true	"Term fields"
//	@Success		201		{object}	models.Term
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/glossary [post]
func (h *Handler) CreateTerm(w http.ResponseWriter, r *http.Request) {
	var req TermRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.CreateTerm(r.Context(), wiki.TermInput{Term: req.Term, Definition: req.Definition})
	if err != nil {
		writeError(w, "create term", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// UpdateTerm handles PUT /api/glossary/{id}.
//
//	@Summary		Edit a glossary term
//	@Tags			glossary
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Term ID"
//	@Param			body	body		TermRequest	true	"Term fields"
//	@Success		200		{object}	models.Term
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/glossary/{id} [put]
func (h *Handler) UpdateTerm(w http.ResponseWriter, r *http.Request) {
	var req TermRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.UpdateTerm(r.Context(), chi.URLParam(r, "id"), wiki.TermInput{Term: req.Term, Definition: req.Definition})
	if err != nil {
		writeError(w, "update term", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Preview handles POST /api/preview.
//
//	@Summary		Render Markdown
//	@Tags			wiki
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PreviewRequest	true	"Markdown"
//	@Success		200		{object}	PreviewResponse
//	@Router			/preview [post]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	html, err := h.svc.Preview(req.Markdown)
	if err != nil {
		writeError(w, "preview", err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{HTML: string(html)})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across articles
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit, !IsEditor(r.Context()))
	if err != nil {
		writeError(w, "search", err)
		return
	}
	out := make([]SearchResult, 0, len(results))
	for _, res := range results {
		out = append(out, SearchResult{PathLink: newPathLink(res.Path()), Title: res.Title, Snippet: res.Snippet})
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: out})
}

// Backlinks handles GET /api/backlinks/*.
//
//	@Summary		List articles linking to a wiki path
//	@Tags			wiki
//	@Produce		json
//	@Param			path	path		string	true	"Wiki path"
//	@Success		200		{object}	BacklinksResponse
//	@Router			/backlinks/{path} [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	p, ok := wikiPath(w, r)
	if !ok {
		return
	}
	paths, err := h.svc.Backlinks(r.Context(), p, !IsEditor(r.Context()))
	if err != nil {
		writeError(w, "backlinks", err)
		return
	}
	out := make([]PathLink, 0, len(paths))
	for _, bp := range paths {
		out = append(out, newPathLink(bp))
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Path: p.String(), Backlinks: out})
}
