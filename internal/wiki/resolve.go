package wiki

import (
	"context"
	"net/url"
	"strings"

	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/wikipath"
)

// Outcome classifies a Resolution.
type Outcome int

const (
	NotFound Outcome = iota
	Found
	// Redirected points at the final article, or at a raw external target
	// when Article is nil.
	Redirected
	// StickyRedirect points at an intermediate redirect article, with
	// redirect=no on the URL so the reader lands on it.
	StickyRedirect
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Redirected:
		return "redirected"
	case StickyRedirect:
		return "sticky_redirect"
	default:
		return "not_found"
	}
}

// Resolution is the result of resolving a path.
type Resolution struct {
	Outcome Outcome
	Article *models.Article
	URL     string
}

// ResolveOptions controls visibility and redirect handling.
type ResolveOptions struct {
	PublishedOnly bool
	// Sticky stops at the first redirect whose target is itself a redirect.
	Sticky bool
	// SuppressRedirect returns a redirect article as Found (redirect=no).
	SuppressRedirect bool
}

// DefaultResolveOptions is what anonymous readers get.
func DefaultResolveOptions() ResolveOptions {
	return ResolveOptions{PublishedOnly: true, Sticky: true}
}

// Resolve finds the article at p and follows its redirect, if any.
// A missing article is the NotFound outcome, not an error.
func (s *Service) Resolve(ctx context.Context, p wikipath.WikiPath, opts ResolveOptions) (Resolution, error) {
	a, err := s.find(ctx, p, opts.PublishedOnly)
	if err != nil {
		return Resolution{}, err
	}
	if a == nil {
		return Resolution{Outcome: NotFound}, nil
	}
	if opts.SuppressRedirect || !a.IsRedirect() {
		return Resolution{Outcome: Found, Article: a, URL: a.URL()}, nil
	}

	visited := map[string]bool{pathKey(a): true}
	current := a
	for hops := 1; ; hops++ {
		raw, _ := current.RedirectTarget()
		target, err := s.redirectTarget(ctx, raw, opts.PublishedOnly)
		if err != nil {
			return Resolution{}, err
		}
		if target == nil {
			return Resolution{Outcome: Redirected, URL: raw}, nil
		}
		if !target.IsRedirect() {
			return Resolution{Outcome: Redirected, Article: target, URL: target.URL()}, nil
		}
		if opts.Sticky || visited[pathKey(target)] || hops >= s.maxHops {
			return Resolution{Outcome: StickyRedirect, Article: target, URL: StickyURL(target)}, nil
		}
		visited[pathKey(target)] = true
		current = target
	}
}

// redirectTarget looks up raw as an absolute path. Unparseable or missing
// targets yield nil.
func (s *Service) redirectTarget(ctx context.Context, raw string, publishedOnly bool) (*models.Article, error) {
	p, err := wikipath.Parse(redirectPath(raw))
	if err != nil {
		return nil, nil
	}
	return s.find(ctx, p, publishedOnly)
}

// redirectPath drops the query and fragment of a redirect target, so a stub
// pointing at "/page?redirect=no" still lands on page.
func redirectPath(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return u.Path
}

// StickyURL is the canonical URL of a with redirect=no appended.
func StickyURL(a *models.Article) string {
	u := url.URL{
		Path:     a.URL(),
		RawQuery: url.Values{"redirect": []string{"no"}}.Encode(),
	}
	return u.String()
}

func pathKey(a *models.Article) string {
	return strings.ToLower(a.Path().String())
}
