package wiki

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/starford/langthil/internal/apperr"
	"github.com/starford/langthil/internal/models"
)

// GlossaryEntry is a term with its definition rendered.
type GlossaryEntry struct {
	models.Term
	DefinitionHTML template.HTML `json:"definition_html"`
}

// TermInput carries the editable fields of a glossary term.
type TermInput struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// Glossary returns every term alphabetically with rendered definitions.
func (s *Service) Glossary(ctx context.Context) ([]GlossaryEntry, error) {
	terms, err := s.store.ListTerms(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]GlossaryEntry, 0, len(terms))
	for _, t := range terms {
		html, err := s.pipeline.RenderMarkdown(t.Definition)
		if err != nil {
			return nil, fmt.Errorf("wiki: render term %q: %w", t.Term, err)
		}
		out = append(out, GlossaryEntry{Term: t, DefinitionHTML: html})
	}
	return out, nil
}

// CreateTerm adds a glossary term. Terms differing only in case collide.
func (s *Service) CreateTerm(ctx context.Context, in TermInput) (*models.Term, error) {
	t := &models.Term{}
	if err := s.saveTerm(ctx, t, in); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTerm applies in to the term with id.
func (s *Service) UpdateTerm(ctx context.Context, id string, in TermInput) (*models.Term, error) {
	t, err := s.store.FindTerm(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("wiki: term %s: %w", id, err)
	}
	if err := s.saveTerm(ctx, t, in); err != nil {
		return nil, err
	}
	return t, nil
}

// saveTerm validates in and stores it over t. t is untouched on failure.
func (s *Service) saveTerm(ctx context.Context, t *models.Term, in TermInput) error {
	next := *t
	next.Term = strings.TrimSpace(in.Term)
	next.Definition = strings.TrimSpace(in.Definition)
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if err := s.store.SaveTerm(ctx, &next); err != nil {
		return fmt.Errorf("wiki: save term %q: %w", next.Term, err)
	}
	*t = next
	return nil
}
