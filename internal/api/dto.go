package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/wiki"
	"github.com/starford/langthil/internal/wikipath"
)

// ArticleRequest is the request body for creating or updating an article.
type ArticleRequest struct {
	Title       string   `json:"title" example:"Red Dragon" validate:"required"`
	Namespace   string   `json:"namespace" example:"lore/beasts"`
	Slug        string   `json:"slug" example:"red-dragon"`
	Markdown    string   `json:"markdown" example:"# Red Dragon"`
	IsPublished bool     `json:"is_published"`
	IsNSFW      bool     `json:"is_nsfw"`
	IsSpoiler   bool     `json:"is_spoiler"`
	Tags        []string `json:"tags" example:"beasts"`
}

// Validate implements validation.Validatable.
func (r *ArticleRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, validation.RuneLength(1, models.MaxTitleLength)),
		validation.Field(&r.Tags, validation.Each(validation.Required, validation.RuneLength(1, models.MaxTitleLength))),
	)
}

func (r *ArticleRequest) input() wiki.ArticleInput {
	return wiki.ArticleInput{
		Title:       r.Title,
		Namespace:   r.Namespace,
		Slug:        r.Slug,
		Markdown:    r.Markdown,
		IsPublished: r.IsPublished,
		IsNSFW:      r.IsNSFW,
		IsSpoiler:   r.IsSpoiler,
		Tags:        r.Tags,
	}
}

// MoveRequest is the request body for moving an article.
type MoveRequest struct {
	Path string `json:"path" example:"lore/beasts/red-dragon" validate:"required"`
}

// Validate implements validation.Validatable.
func (r *MoveRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
	)
}

// TagRequest is the request body for editing a tag.
type TagRequest struct {
	Name        string `json:"name" example:"Beasts" validate:"required"`
	Slug        string `json:"slug" example:"beasts"`
	Description string `json:"description" example:"Creatures of the realm."`
}

// Validate implements validation.Validatable.
func (r *TagRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.RuneLength(1, models.MaxTitleLength)),
	)
}

// TagListResponse wraps the tag listing.
type TagListResponse struct {
	Tags []models.Tag `json:"tags" validate:"required"`
}

// TermRequest is the request body for creating or editing a glossary term.
type TermRequest struct {
	Term       string `json:"term" example:"Wyrm" validate:"required"`
	Definition string `json:"definition" example:"A wingless dragon." validate:"required"`
}

// Validate implements validation.Validatable.
func (r *TermRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Term, validation.Required, validation.RuneLength(1, models.MaxTermLength)),
		validation.Field(&r.Definition, validation.Required),
	)
}

// GlossaryResponse wraps the glossary listing.
type GlossaryResponse struct {
	Terms []wiki.GlossaryEntry `json:"terms" validate:"required"`
}

// PreviewRequest is the request body for rendering Markdown.
type PreviewRequest struct {
	Markdown string `json:"markdown" example:"**bold**"`
}

// PreviewResponse carries rendered HTML.
type PreviewResponse struct {
	HTML string `json:"html"`
}

// PageResponse is the result of viewing a wiki path.
type PageResponse struct {
	Outcome     string          `json:"outcome" example:"found"`
	Article     *models.Article `json:"article,omitempty"`
	HTML        string          `json:"html,omitempty"`
	Gated       bool            `json:"gated"`
	NotFound    bool            `json:"not_found"`
	CreateURL   string          `json:"create_url,omitempty" example:"/new/lore/red-dragon"`
	RedirectURL string          `json:"redirect_url,omitempty" example:"/wiki/lore/red-dragon"`
}

func newPageResponse(p *wiki.Page) PageResponse {
	resp := PageResponse{
		Outcome:   p.Resolution.Outcome.String(),
		HTML:      string(p.HTML),
		Gated:     p.Gated,
		NotFound:  p.NotFound,
		CreateURL: p.CreateURL,
	}
	switch p.Resolution.Outcome {
	case wiki.Redirected, wiki.StickyRedirect:
		resp.RedirectURL = p.Resolution.URL
	}
	if p.Article != nil {
		a := *p.Article
		if p.Gated {
			a.Markdown = ""
		}
		resp.Article = &a
	}
	return resp
}

// ArticleListResponse wraps paginated article listings.
type ArticleListResponse struct {
	Articles []models.Article `json:"articles" validate:"required"`
	Total    int              `json:"total" example:"42" validate:"required"`
}

// MoveResponse is returned after a move.
type MoveResponse struct {
	Article  *models.Article `json:"article"`
	Redirect *models.Article `json:"redirect,omitempty"`
}

// PathLink is a wiki path with its view URL.
type PathLink struct {
	Path string `json:"path" example:"lore/dragons"`
	URL  string `json:"url" example:"/wiki/lore/dragons"`
}

func newPathLink(p wikipath.WikiPath) PathLink {
	return PathLink{Path: p.String(), URL: p.URL()}
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	PathLink
	Title   string `json:"title" example:"Dragons" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// BacklinksResponse lists the articles linking to a path.
type BacklinksResponse struct {
	Path      string     `json:"path"`
	Backlinks []PathLink `json:"backlinks"`
}
