// Package models defines the domain types for Langthil.
package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/langthil/internal/parser"
	"github.com/starford/langthil/internal/wikipath"
)

// MaxTitleLength bounds article titles and tag names.
const MaxTitleLength = 50

// Article is a wiki page addressed by (namespace, slug).
type Article struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Namespace   string     `json:"namespace"`
	Slug        string     `json:"slug"`
	Published   *time.Time `json:"published,omitempty"`
	Edited      time.Time  `json:"edited"`
	IsPublished bool       `json:"is_published"`
	IsNSFW      bool       `json:"is_nsfw"`
	IsSpoiler   bool       `json:"is_spoiler"`
	Markdown    string     `json:"markdown"`
	Tags        []Tag      `json:"tags"`
}

// Path returns the article's address.
func (a *Article) Path() wikipath.WikiPath {
	return wikipath.WikiPath{Namespace: a.Namespace, Slug: a.Slug}
}

// URL returns the canonical view URL.
func (a *Article) URL() string {
	return a.Path().URL()
}

// IsRedirect reports whether the body is a redirect directive.
func (a *Article) IsRedirect() bool {
	_, ok := parser.RedirectTarget(a.Markdown)
	return ok
}

// RedirectTarget returns the raw redirect target, if any.
func (a *Article) RedirectTarget() (string, bool) {
	return parser.RedirectTarget(a.Markdown)
}

// IsSpecial reports whether the article lives in the special namespace.
func (a *Article) IsSpecial() bool {
	return wikipath.IsSpecial(a.Slug)
}

// TagSlugs returns the slugs of the article's tags.
func (a *Article) TagSlugs() []string {
	out := make([]string, 0, len(a.Tags))
	for _, t := range a.Tags {
		out = append(out, t.Slug)
	}
	return out
}

// Validate checks field constraints. Slug and namespace must already be normalized.
func (a *Article) Validate() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.Title, validation.Required, validation.RuneLength(1, MaxTitleLength)),
		validation.Field(&a.Slug, validation.Required, validation.By(func(any) error {
			return wikipath.ValidateSlug(a.Slug)
		})),
		validation.Field(&a.Namespace, validation.By(func(any) error {
			if a.Namespace != wikipath.NormalizeNamespace(a.Namespace) {
				return validation.NewError("validation_namespace", "namespace is not normalized")
			}
			return nil
		})),
	)
}
