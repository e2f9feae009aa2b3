// Package wiki implements article resolution, namespace templates, moves and
// the page-level operations built on them.
package wiki

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/langthil/internal/apperr"
	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/render"
	"github.com/starford/langthil/internal/store"
	"github.com/starford/langthil/internal/wikipath"
)

// DefaultMaxRedirectHops bounds non-sticky redirect chasing.
const DefaultMaxRedirectHops = 8

// Event kinds published after writes.
const (
	EventArticleSaved = "article.saved"
	EventArticleMoved = "article.moved"
)

// Store is the persistence the service needs.
type Store interface {
	FindArticle(ctx context.Context, q store.ArticleQuery) (*models.Article, error)
	ArticleExists(ctx context.Context, q store.ArticleQuery) (bool, error)
	SaveArticle(ctx context.Context, a *models.Article) error
	ListArticles(ctx context.Context, q store.ListQuery) ([]models.Article, int, error)
	FindTag(ctx context.Context, slug string) (*models.Tag, error)
	SaveTag(ctx context.Context, t *models.Tag) error
	ListTags(ctx context.Context) ([]models.Tag, error)
	TagArticles(ctx context.Context, tagID string, publishedOnly bool) ([]models.Article, error)
	Search(ctx context.Context, query string, limit int, publishedOnly bool) ([]store.SearchResult, error)
	Backlinks(ctx context.Context, target wikipath.WikiPath, publishedOnly bool) ([]wikipath.WikiPath, error)
	FindTerm(ctx context.Context, id string) (*models.Term, error)
	SaveTerm(ctx context.Context, t *models.Term) error
	ListTerms(ctx context.Context) ([]models.Term, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// Publisher receives change notifications.
type Publisher interface {
	PublishArticleEvent(kind string, a *models.Article)
	// PublishArticleMoved announces that a now lives where from used to.
	PublishArticleMoved(a *models.Article, from wikipath.WikiPath)
}

// Exporter mirrors saved articles somewhere else, e.g. a vault directory.
type Exporter interface {
	Export(ctx context.Context, a *models.Article) error
}

// Service coordinates the store and the render pipeline.
type Service struct {
	store    Store
	pipeline *render.Pipeline
	clock    Clock
	logger   *slog.Logger

	maxHops    int
	sticky     bool
	special404 string

	events   Publisher
	exporter Exporter
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMaxRedirectHops bounds non-sticky redirect chains.
func WithMaxRedirectHops(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxHops = n
		}
	}
}

// WithStickyRedirects sets whether page views stop at intermediate redirects.
func WithStickyRedirects(sticky bool) Option {
	return func(s *Service) { s.sticky = sticky }
}

// WithNotFoundSlug sets the slug of the article shown for missing pages.
func WithNotFoundSlug(slug string) Option {
	return func(s *Service) {
		if slug != "" {
			s.special404 = wikipath.TransformSlug(slug)
		}
	}
}

// WithPublisher sets the event sink.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithExporter sets the exporter called after every save.
func WithExporter(e Exporter) Option {
	return func(s *Service) { s.exporter = e }
}

// NewService creates a wiki service.
func NewService(st Store, pipeline *render.Pipeline, opts ...Option) *Service {
	s := &Service{
		store:      st,
		pipeline:   pipeline,
		clock:      ClockFunc(time.Now),
		logger:     slog.Default(),
		maxHops:    DefaultMaxRedirectHops,
		sticky:     true,
		special404: wikipath.SpecialPrefix + "404",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetExporter attaches an exporter after construction. The vault mirror needs
// the service to import, and the service needs the mirror to export.
func (s *Service) SetExporter(e Exporter) {
	s.exporter = e
}

// ArticleInput carries the editable fields of an article.
type ArticleInput struct {
	Title       string   `json:"title"`
	Namespace   string   `json:"namespace"`
	Slug        string   `json:"slug"`
	Markdown    string   `json:"markdown"`
	IsPublished bool     `json:"is_published"`
	IsNSFW      bool     `json:"is_nsfw"`
	IsSpoiler   bool     `json:"is_spoiler"`
	Tags        []string `json:"tags"`
}

// SaveArticle normalizes, validates and persists a, then exports it and
// publishes an event.
func (s *Service) SaveArticle(ctx context.Context, a *models.Article) error {
	if err := s.persist(ctx, a); err != nil {
		return err
	}
	if s.exporter != nil {
		if err := s.exporter.Export(ctx, a); err != nil {
			s.logger.Warn("export failed",
				slog.String("path", a.Path().String()),
				slog.String("error", err.Error()))
		}
	}
	s.publish(EventArticleSaved, a)
	return nil
}

// ImportArticle saves a with the named tags, without exporting it back.
func (s *Service) ImportArticle(ctx context.Context, a *models.Article, tags []string) error {
	var err error
	if a.Tags, err = s.ensureTags(ctx, tags); err != nil {
		return err
	}
	if err := s.persist(ctx, a); err != nil {
		return err
	}
	s.publish(EventArticleSaved, a)
	return nil
}

// persist applies the save rules to a copy of a and stores it. a only takes
// on the derived slug, timestamps and ID once the store accepts the copy.
func (s *Service) persist(ctx context.Context, a *models.Article) error {
	next := *a
	if strings.TrimSpace(next.Slug) == "" {
		next.Slug = wikipath.TransformSlug(next.Title)
	} else {
		next.Slug = wikipath.TransformSlug(next.Slug)
	}
	next.Namespace = wikipath.NormalizeNamespace(next.Namespace)
	next.Title = strings.TrimSpace(next.Title)

	if next.IsSpecial() {
		next.IsPublished = true
		next.IsNSFW = false
		next.IsSpoiler = false
	}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	now := s.clock.Now()
	if next.IsPublished && next.Published == nil {
		next.Published = &now
	}
	next.Edited = now
	if next.Tags == nil {
		next.Tags = []models.Tag{}
	}

	if err := s.store.SaveArticle(ctx, &next); err != nil {
		return fmt.Errorf("wiki: save %s: %w", next.Path(), err)
	}
	*a = next
	return nil
}

// CreateArticle builds a new article from in and saves it.
func (s *Service) CreateArticle(ctx context.Context, in ArticleInput) (*models.Article, error) {
	a := &models.Article{}
	if err := s.apply(ctx, a, in); err != nil {
		return nil, err
	}
	if err := s.SaveArticle(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateArticle applies in to the article with id. A changed path leaves a
// redirect stub behind.
func (s *Service) UpdateArticle(ctx context.Context, id string, in ArticleInput) (*models.Article, error) {
	a, err := s.Article(ctx, id)
	if err != nil {
		return nil, err
	}
	oldNamespace, oldSlug := a.Namespace, a.Slug
	if err := s.apply(ctx, a, in); err != nil {
		return nil, err
	}
	if err := s.SaveArticle(ctx, a); err != nil {
		return nil, err
	}
	if _, err := s.OnMove(ctx, a, oldNamespace, oldSlug); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) apply(ctx context.Context, a *models.Article, in ArticleInput) error {
	a.Title = in.Title
	a.Namespace = in.Namespace
	a.Slug = in.Slug
	a.Markdown = in.Markdown
	a.IsPublished = in.IsPublished
	a.IsNSFW = in.IsNSFW
	a.IsSpoiler = in.IsSpoiler

	tags, err := s.ensureTags(ctx, in.Tags)
	if err != nil {
		return err
	}
	a.Tags = tags
	return nil
}

// ensureTags looks tags up by slug, creating the missing ones.
func (s *Service) ensureTags(ctx context.Context, names []string) ([]models.Tag, error) {
	out := []models.Tag{}
	seen := map[string]bool{}
	for _, name := range names {
		slug := wikipath.TransformSlug(name)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true

		t, err := s.store.FindTag(ctx, slug)
		if errors.Is(err, apperr.ErrNotFound) {
			t = &models.Tag{Name: strings.TrimSpace(name), Slug: slug}
			err = s.SaveTag(ctx, t)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, nil
}

// Article returns the article with id regardless of visibility.
func (s *Service) Article(ctx context.Context, id string) (*models.Article, error) {
	a, err := s.store.FindArticle(ctx, store.ArticleQuery{ID: id})
	if err != nil {
		return nil, fmt.Errorf("wiki: article %s: %w", id, err)
	}
	return a, nil
}

// ArticleAt returns the article at p, or apperr.ErrNotFound.
func (s *Service) ArticleAt(ctx context.Context, p wikipath.WikiPath, publishedOnly bool) (*models.Article, error) {
	return s.store.FindArticle(ctx, store.ByPath(p, publishedOnly))
}

// find is ArticleAt with a missing article reported as nil.
func (s *Service) find(ctx context.Context, p wikipath.WikiPath, publishedOnly bool) (*models.Article, error) {
	if p.Slug == "" {
		return nil, nil
	}
	a, err := s.store.FindArticle(ctx, store.ByPath(p, publishedOnly))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("wiki: find %s: %w", p, err)
	}
	return a, nil
}

// ListArticles returns published, non-special articles ordered by slug.
func (s *Service) ListArticles(ctx context.Context, namespace string, limit, offset int) ([]models.Article, int, error) {
	return s.store.ListArticles(ctx, store.ListQuery{
		Namespace:      wikipath.NormalizeNamespace(namespace),
		PublishedOnly:  true,
		ExcludeSpecial: true,
		Limit:          limit,
		Offset:         offset,
	})
}

// Search delegates full-text search to the store.
func (s *Service) Search(ctx context.Context, query string, limit int, publishedOnly bool) ([]store.SearchResult, error) {
	return s.store.Search(ctx, query, limit, publishedOnly)
}

// Backlinks returns the paths of articles linking to p.
func (s *Service) Backlinks(ctx context.Context, p wikipath.WikiPath, publishedOnly bool) ([]wikipath.WikiPath, error) {
	out, err := s.store.Backlinks(ctx, p, publishedOnly)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []wikipath.WikiPath{}
	}
	return out, nil
}

// Render renders a with its front matter.
func (s *Service) Render(a *models.Article) (template.HTML, error) {
	return s.pipeline.Render(a)
}

// Preview renders bare Markdown.
func (s *Service) Preview(markdown string) (template.HTML, error) {
	return s.pipeline.RenderMarkdown(markdown)
}

func (s *Service) publish(kind string, a *models.Article) {
	if s.events != nil {
		s.events.PublishArticleEvent(kind, a)
	}
}
