// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Langthil wiki tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/langthil/internal/apperr"
	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/parser"
	"github.com/starford/langthil/internal/wiki"
	"github.com/starford/langthil/internal/wikipath"
)

const formatURI = "langthil://markup-format"

// Server wraps the MCP server with Langthil tools.
type Server struct {
	mcp *server.MCPServer
	svc *wiki.Service
}

// New creates a new MCP server with all Langthil tools registered.
func New(svc *wiki.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Langthil",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("resolve_article",
		mcp.WithDescription("Resolve a wiki path, following redirects the way readers see them. "+
			"Returns the outcome (found, redirected, sticky_redirect, not_found) and the final URL."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Wiki path, e.g. lore/dragons")),
		mcp.WithBoolean("include_unpublished", mcp.Description("Also resolve unpublished articles")),
	), s.resolveArticle)

	s.mcp.AddTool(mcp.NewTool("read_article",
		mcp.WithDescription("Read an article as Markdown with YAML front matter. Redirects are not followed."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Wiki path, e.g. lore/dragons")),
	), s.readArticle)

	s.mcp.AddTool(mcp.NewTool("render_article",
		mcp.WithDescription("Render an article to HTML."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Wiki path, e.g. lore/dragons")),
	), s.renderArticle)

	s.mcp.AddTool(mcp.NewTool("create_article",
		mcp.WithDescription("Create a new article at the given wiki path. "+
			"Content MUST follow the Langthil markup format (YAML front matter with title, "+
			"publish flag and optional tags, Markdown body with [[wikilinks]]). Read the format first via "+
			"the get_markup_format tool or the "+formatURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Wiki path for the new article")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content following the Langthil markup format")),
	), s.createArticle)

	s.mcp.AddTool(mcp.NewTool("move_article",
		mcp.WithDescription("Move an article to a new wiki path. A redirect is left at the old path."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Current wiki path")),
		mcp.WithString("destination", mcp.Required(), mcp.Description("New wiki path")),
	), s.moveArticle)

	s.mcp.AddTool(mcp.NewTool("list_articles",
		mcp.WithDescription("List published articles, optionally within a namespace."),
		mcp.WithString("namespace", mcp.Description("Optional namespace (empty for all)")),
	), s.listArticles)

	s.mcp.AddTool(mcp.NewTool("search_articles",
		mcp.WithDescription("Full-text search through article titles and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchArticles)

	s.mcp.AddTool(mcp.NewTool("find_template",
		mcp.WithDescription("Return the _template body new articles in a namespace start from."),
		mcp.WithString("namespace", mcp.Description("Namespace to look up (empty for root)")),
	), s.findTemplate)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all articles that link to the specified path."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Wiki path to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_markup_format",
		mcp.WithDescription("Returns the Langthil markup format. "+
			"Call this before creating articles to ensure correct structure."),
	), s.getMarkupFormat)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Markup Format",
			mcp.WithResourceDescription("Markdown article format that all articles must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func requirePath(req mcp.CallToolRequest, key string) (wikipath.WikiPath, error) {
	raw, err := req.RequireString(key)
	if err != nil {
		return wikipath.WikiPath{}, err
	}
	return wikipath.Parse(raw)
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) article(ctx context.Context, p wikipath.WikiPath) (*models.Article, *mcp.CallToolResult) {
	a, err := s.svc.ArticleAt(ctx, p, false)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, mcp.NewToolResultError(fmt.Sprintf("not found: %s", p))
	}
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	return a, nil
}

func (s *Server) resolveArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := requirePath(req, "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	opts := wiki.DefaultResolveOptions()
	opts.PublishedOnly = !req.GetBool("include_unpublished", false)

	res, err := s.svc.Resolve(ctx, p, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := struct {
		Outcome string `json:"outcome"`
		URL     string `json:"url,omitempty"`
		Path    string `json:"path,omitempty"`
		Title   string `json:"title,omitempty"`
	}{Outcome: res.Outcome.String(), URL: res.URL}
	if res.Article != nil {
		out.Path = res.Article.Path().String()
		out.Title = res.Article.Title
	}
	return jsonResult(out), nil
}

func (s *Server) readArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := requirePath(req, "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, errResult := s.article(ctx, p)
	if errResult != nil {
		return errResult, nil
	}
	data, err := parser.EncodeDocument(parser.DocumentMeta{
		Title:     a.Title,
		Published: a.Published,
		Publish:   a.IsPublished,
		NSFW:      a.IsNSFW,
		Spoiler:   a.IsSpoiler,
		Tags:      a.TagSlugs(),
	}, a.Markdown)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) renderArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := requirePath(req, "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, errResult := s.article(ctx, p)
	if errResult != nil {
		return errResult, nil
	}
	html, err := s.svc.Render(a)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(html)), nil
}

func (s *Server) createArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := requirePath(req, "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := parser.ParseDocument([]byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	title := doc.Meta.Title
	if title == "" {
		title = p.Slug
	}
	a, err := s.svc.CreateArticle(ctx, wiki.ArticleInput{
		Title:       title,
		Namespace:   p.Namespace,
		Slug:        p.Slug,
		Markdown:    strings.TrimRight(doc.Body, "\n"),
		IsPublished: doc.Meta.Publish,
		IsNSFW:      doc.Meta.NSFW,
		IsSpoiler:   doc.Meta.Spoiler,
		Tags:        doc.Meta.Tags,
	})
	if errors.Is(err, apperr.ErrConflict) {
		return mcp.NewToolResultError(fmt.Sprintf("article already exists: %s", p)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", a.Path())), nil
}

func (s *Server) moveArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from, err := requirePath(req, "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dest, err := requirePath(req, "destination")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, errResult := s.article(ctx, from)
	if errResult != nil {
		return errResult, nil
	}
	moved, stub, err := s.svc.Move(ctx, a.ID, dest)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg := fmt.Sprintf("moved: %s -> %s", from, moved.Path())
	if stub != nil {
		msg += fmt.Sprintf(" (redirect left at %s)", stub.Path())
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) listArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.ListArticles(ctx, req.GetString("namespace", ""), 0, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var paths []string
	for _, a := range items {
		paths = append(paths, a.Path().String())
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) searchArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20, true)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results), nil
}

func (s *Server) findTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ns := req.GetString("namespace", "")
	body, ok, err := s.svc.FindTemplate(ctx, ns)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultText("no template found"), nil
	}
	return mcp.NewToolResultText(body), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := requirePath(req, "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, p, false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	paths := make([]string, 0, len(bl))
	for _, b := range bl {
		paths = append(paths, b.String())
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getMarkupFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MarkupFormat), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     MarkupFormat,
		},
	}, nil
}
