package render

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"

	wparser "github.com/starford/langthil/internal/parser"
	"github.com/starford/langthil/internal/wikipath"
)

var metaLineRe = regexp.MustCompile(`^(Title|Published|BaseURL):\s?(.*)$`)

// GoldmarkOptions tunes the goldmark engine.
type GoldmarkOptions struct {
	HardWraps bool
	// SafeMode drops raw HTML from bodies instead of passing it through.
	SafeMode bool
}

// Goldmark is the default Renderer. It consumes a leading front matter block,
// resolves [[wikilinks]] against the block's BaseURL and converts the rest
// with goldmark.
type Goldmark struct {
	engine goldmark.Markdown
}

var _ Renderer = (*Goldmark)(nil)

// NewGoldmark builds a renderer with GFM, linkify and task lists enabled.
func NewGoldmark(opts GoldmarkOptions) *Goldmark {
	rendererOptions := []renderer.Option{}
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if !opts.SafeMode {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	return &Goldmark{engine: goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.TaskList),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(rendererOptions...),
	)}
}

// ToHTML implements Renderer.
func (g *Goldmark) ToHTML(markdown string) (string, error) {
	meta, body := SplitMeta(markdown)
	body = resolveWikiLinks(body, meta["BaseURL"])

	var buf bytes.Buffer
	if err := g.engine.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("goldmark convert: %w", err)
	}
	return buf.String(), nil
}

// SplitMeta separates a leading Title/Published/BaseURL block from the body.
// Text that does not open with such a block is returned unchanged.
func SplitMeta(text string) (map[string]string, string) {
	meta := map[string]string{}
	lines := strings.Split(text, "\n")
	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(line) == "" {
			break
		}
		m := metaLineRe.FindStringSubmatch(line)
		if m == nil {
			return map[string]string{}, text
		}
		meta[m[1]] = strings.TrimSpace(m[2])
	}
	if len(meta) == 0 {
		return meta, text
	}
	if i < len(lines) {
		i++
	}
	return meta, strings.Join(lines[i:], "\n")
}

// resolveWikiLinks rewrites [[target|label]] into Markdown links. Relative
// targets resolve against the namespace of baseURL; absolute ones start with "/".
func resolveWikiLinks(body, baseURL string) string {
	namespace := wikipath.ParentNamespace(baseURL)
	return wparser.ReplaceLinks(body, func(l wparser.Link) string {
		if strings.Contains(l.Target, "://") {
			return fmt.Sprintf("[%s](%s)", l.Label, l.Target)
		}
		p, err := wikipath.Resolve(namespace, l.Target)
		if err != nil {
			return l.Label
		}
		return fmt.Sprintf("[%s](%s)", l.Label, p.URL())
	})
}
