package wiki

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/starford/langthil/internal/apperr"
	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/wikipath"
)

func TestTemplateCandidates(t *testing.T) {
	got := TemplateCandidates("x/y/z")
	var paths []string
	for _, p := range got {
		paths = append(paths, p.String())
	}
	want := []string{"x/y/z/_template", "x/y/_template", "x/_template", "_template"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("candidates = %v, want %v", paths, want)
	}

	root := TemplateCandidates("")
	if len(root) != 1 || root[0] != (wikipath.WikiPath{Slug: wikipath.TemplateSlug}) {
		t.Errorf("root candidates = %v", root)
	}
}

func TestFindTemplate_FallsBackToRoot(t *testing.T) {
	svc, _ := testService(t)
	save(t, svc, &models.Article{Title: "Root template", Slug: "_template", Markdown: "root body"})

	md, ok, err := svc.FindTemplate(context.Background(), "x/y/z")
	if err != nil || !ok || md != "root body" {
		t.Errorf("FindTemplate = %q, %v, %v", md, ok, err)
	}
}

func TestFindTemplate_NearestWins(t *testing.T) {
	svc, _ := testService(t)
	save(t, svc, &models.Article{Title: "Root", Slug: "_template", Markdown: "root"})
	save(t, svc, &models.Article{Title: "X", Namespace: "x", Slug: "_template", Markdown: "x"})

	md, ok, _ := svc.FindTemplate(context.Background(), "x/y")
	if !ok || md != "x" {
		t.Errorf("FindTemplate = %q, %v", md, ok)
	}
}

func TestFindTemplate_None(t *testing.T) {
	svc, _ := testService(t)
	_, ok, err := svc.FindTemplate(context.Background(), "a/b")
	if err != nil || ok {
		t.Errorf("FindTemplate = %v, %v", ok, err)
	}
}

func TestNewArticleDraft(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	save(t, svc, &models.Article{Title: "Lore template", Namespace: "lore", Slug: "_template", Markdown: "## Overview"})

	d, err := svc.NewArticleDraft(ctx, wikipath.New("lore/beasts", "red_dragon"))
	if err != nil {
		t.Fatal(err)
	}
	if d.Title != "Red Dragon" {
		t.Errorf("title = %q", d.Title)
	}
	if d.Slug == "" || wikipath.ValidateSlug(d.Slug) != nil || !strings.Contains(d.Slug, "red") {
		t.Errorf("slug = %q", d.Slug)
	}
	if !d.IsPublished || d.Markdown != "## Overview" || d.Namespace != "lore/beasts" {
		t.Errorf("draft = %+v", d)
	}
	if d.ID != "" {
		t.Error("draft must not be persisted")
	}

	tpl, _ := svc.NewArticleDraft(ctx, wikipath.New("", "_template"))
	if tpl == nil || tpl.Slug != "_template" || tpl.Title != "Template" {
		t.Errorf("template draft = %+v", tpl)
	}

	if _, err := svc.NewArticleDraft(ctx, wikipath.New("LORE", "_Template")); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("draft over existing article: err = %v", err)
	}
}

func TestTitleFromSlug(t *testing.T) {
	cases := map[string]string{
		"red_dragon":  "Red Dragon",
		"old-lore":    "Old-Lore",
		"_template":   "Template",
		"x":           "X",
		"special:404": "Special:404",
	}
	for in, want := range cases {
		if got := titleFromSlug(in); got != want {
			t.Errorf("titleFromSlug(%q) = %q, want %q", in, got, want)
		}
	}
}
