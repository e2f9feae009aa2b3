// Package render turns article Markdown into HTML through an injected Renderer.
package render

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/wikipath"
)

// Renderer converts Markdown into HTML. Implementations must be free of side effects.
type Renderer interface {
	ToHTML(markdown string) (string, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(string) (string, error)

// ToHTML implements Renderer.
func (f RendererFunc) ToHTML(markdown string) (string, error) { return f(markdown) }

// Pipeline prepends the front matter block to article bodies before rendering.
// Output is trusted: bodies come from authors, nothing is sanitized.
type Pipeline struct {
	renderer Renderer
}

// NewPipeline creates a pipeline over r.
func NewPipeline(r Renderer) *Pipeline {
	return &Pipeline{renderer: r}
}

// FrontMatter builds the Title/Published/BaseURL header for a.
func FrontMatter(a *models.Article) string {
	published := ""
	if a.Published != nil {
		published = a.Published.UTC().Format(time.RFC3339)
	}
	meta := fmt.Sprintf("Title: %s\nPublished: %s\nBaseURL: %s\n",
		a.Title,
		published,
		wikipath.JoinPath(a.Namespace, a.Slug),
	)
	return strings.TrimSpace(meta)
}

// Source returns the exact text handed to the renderer for a.
func Source(a *models.Article) string {
	return FrontMatter(a) + "\n\n" + a.Markdown
}

// Render renders a with its front matter.
func (p *Pipeline) Render(a *models.Article) (template.HTML, error) {
	return p.RenderMarkdown(Source(a))
}

// RenderMarkdown renders bare Markdown, e.g. tag descriptions and previews.
func (p *Pipeline) RenderMarkdown(text string) (template.HTML, error) {
	out, err := p.renderer.ToHTML(text)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return template.HTML(out), nil //nolint:gosec // author content is trusted
}
