package wiki

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/parser"
	"github.com/starford/langthil/internal/wikipath"
)

// OnMove leaves a redirect stub at the old path of a moved article. It returns
// nil when the paths only differ by case.
func (s *Service) OnMove(ctx context.Context, a *models.Article, oldNamespace, oldSlug string) (*models.Article, error) {
	old := wikipath.New(oldNamespace, oldSlug)
	if old.Equal(a.Path()) {
		return nil, nil
	}

	stub := &models.Article{
		Title:       a.Title,
		Namespace:   old.Namespace,
		Slug:        old.Slug,
		IsPublished: a.IsPublished,
		IsNSFW:      a.IsNSFW,
		IsSpoiler:   a.IsSpoiler,
		Markdown:    parser.RedirectDirective(wikipath.Separator + wikipath.JoinPath(a.Namespace, a.Slug)),
	}
	if err := s.SaveArticle(ctx, stub); err != nil {
		return nil, fmt.Errorf("wiki: redirect stub at %s: %w", old, err)
	}
	s.logger.Info("redirect stub created",
		slog.String("from", old.String()),
		slog.String("to", a.Path().String()))
	if s.events != nil {
		s.events.PublishArticleMoved(a, old)
	}
	return stub, nil
}

// Move renames the article with id to dest and leaves a redirect behind.
func (s *Service) Move(ctx context.Context, id string, dest wikipath.WikiPath) (*models.Article, *models.Article, error) {
	a, err := s.Article(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	oldNamespace, oldSlug := a.Namespace, a.Slug
	a.Namespace = dest.Namespace
	a.Slug = dest.Slug
	if err := s.SaveArticle(ctx, a); err != nil {
		return nil, nil, err
	}
	stub, err := s.OnMove(ctx, a, oldNamespace, oldSlug)
	if err != nil {
		return nil, nil, err
	}
	return a, stub, nil
}
