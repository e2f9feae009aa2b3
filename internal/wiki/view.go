package wiki

import (
	"context"
	"fmt"
	"html/template"
	"strings"
	"unicode"

	"github.com/goliatone/go-slug"

	"github.com/starford/langthil/internal/apperr"
	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/store"
	"github.com/starford/langthil/internal/wikipath"
)

const fallbackNotFound = "There is no article here yet."

// ViewRequest describes a page view.
type ViewRequest struct {
	Path wikipath.WikiPath
	// Editor readers see unpublished articles.
	Editor  bool
	Preview bool
	// NoRedirect is the redirect=no query flag.
	NoRedirect bool
	ShowNSFW   bool
}

// Page is what a page view renders. Redirect outcomes carry no HTML.
type Page struct {
	Resolution Resolution      `json:"-"`
	Article    *models.Article `json:"article,omitempty"`
	HTML       template.HTML   `json:"html,omitempty"`
	// Gated hides NSFW content until the reader confirms.
	Gated     bool   `json:"gated"`
	NotFound  bool   `json:"not_found"`
	CreateURL string `json:"create_url,omitempty"`
}

// View resolves req.Path and prepares the page for it.
func (s *Service) View(ctx context.Context, req ViewRequest) (*Page, error) {
	res, err := s.Resolve(ctx, req.Path, ResolveOptions{
		PublishedOnly:    !req.Editor && !req.Preview,
		Sticky:           s.sticky,
		SuppressRedirect: req.NoRedirect,
	})
	if err != nil {
		return nil, err
	}

	page := &Page{Resolution: res}
	switch res.Outcome {
	case Redirected, StickyRedirect:
		return page, nil
	case NotFound:
		a, err := s.notFoundArticle(ctx)
		if err != nil {
			return nil, err
		}
		page.Article = a
		page.NotFound = true
		page.CreateURL = req.Path.NewURL()
	default:
		page.Article = res.Article
		if res.Article.IsNSFW && !req.ShowNSFW {
			page.Gated = true
			return page, nil
		}
	}

	if page.HTML, err = s.pipeline.Render(page.Article); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *Service) notFoundArticle(ctx context.Context) (*models.Article, error) {
	a, err := s.find(ctx, wikipath.WikiPath{Slug: s.special404}, false)
	if err != nil || a != nil {
		return a, err
	}
	return &models.Article{
		Title:       "Not found",
		Slug:        s.special404,
		IsPublished: true,
		Markdown:    fallbackNotFound,
	}, nil
}

// NewArticleDraft prepares an unsaved article for p, seeded from the nearest
// namespace template.
func (s *Service) NewArticleDraft(ctx context.Context, p wikipath.WikiPath) (*models.Article, error) {
	exists, err := s.store.ArticleExists(ctx, store.ByPath(p, false))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("wiki: %s: %w", p, apperr.ErrAlreadyExists)
	}

	title := titleFromSlug(p.Slug)
	draft := &models.Article{
		Title:       title,
		Namespace:   p.Namespace,
		Slug:        p.Slug,
		IsPublished: true,
		Tags:        []models.Tag{},
	}
	if !strings.HasPrefix(p.Slug, "_") && !wikipath.IsSpecial(p.Slug) {
		if suggested, err := slug.Normalize(title); err == nil {
			if t := wikipath.TransformSlug(suggested); t != "" {
				draft.Slug = t
			}
		}
	}

	md, ok, err := s.FindTemplate(ctx, p.Namespace)
	if err != nil {
		return nil, err
	}
	if ok {
		draft.Markdown = md
	}
	return draft, nil
}

// titleFromSlug turns underscores into spaces and capitalizes each word.
func titleFromSlug(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if prevLetter {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(unicode.ToUpper(r))
		}
		prevLetter = unicode.IsLetter(r)
	}
	return strings.TrimSpace(b.String())
}
