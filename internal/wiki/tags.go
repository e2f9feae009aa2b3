package wiki

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/starford/langthil/internal/apperr"
	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/wikipath"
)

// TagPage is a tag with its description rendered and its articles.
type TagPage struct {
	Tag         *models.Tag      `json:"tag"`
	Description template.HTML    `json:"description_html"`
	Articles    []models.Article `json:"articles"`
}

// TagInput carries the editable fields of a tag.
type TagInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// SaveTag normalizes and persists t. An empty slug is derived from the name.
func (s *Service) SaveTag(ctx context.Context, t *models.Tag) error {
	t.Name = strings.TrimSpace(t.Name)
	if strings.TrimSpace(t.Slug) == "" {
		t.Slug = wikipath.TransformSlug(t.Name)
	} else {
		t.Slug = wikipath.TransformSlug(t.Slug)
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if err := s.store.SaveTag(ctx, t); err != nil {
		return fmt.Errorf("wiki: save tag %s: %w", t.Slug, err)
	}
	return nil
}

// UpdateTag applies in to the tag with slug.
func (s *Service) UpdateTag(ctx context.Context, slug string, in TagInput) (*models.Tag, error) {
	t, err := s.store.FindTag(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("wiki: tag %s: %w", slug, err)
	}
	t.Name = in.Name
	t.Slug = in.Slug
	t.Description = in.Description
	if err := s.SaveTag(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTags returns every tag ordered by name.
func (s *Service) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return tags, nil
}

// TagPage loads the tag with slug and the articles carrying it, redirect
// stubs excluded.
func (s *Service) TagPage(ctx context.Context, slug string, publishedOnly bool) (*TagPage, error) {
	t, err := s.store.FindTag(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("wiki: tag %s: %w", slug, err)
	}
	all, err := s.store.TagArticles(ctx, t.ID, publishedOnly)
	if err != nil {
		return nil, err
	}
	articles := []models.Article{}
	for _, a := range all {
		if !a.IsRedirect() {
			articles = append(articles, a)
		}
	}
	desc, err := s.pipeline.RenderMarkdown(t.Description)
	if err != nil {
		return nil, err
	}
	return &TagPage{Tag: t, Description: desc, Articles: articles}, nil
}
