package wiki

import (
	"context"
	"strings"
	"testing"

	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/wikipath"
)

func TestView_Found(t *testing.T) {
	svc, _ := testService(t)
	save(t, svc, page("lore", "dragons", "Big lizards"))

	p, err := svc.View(context.Background(), ViewRequest{Path: wikipath.New("lore", "dragons")})
	if err != nil {
		t.Fatal(err)
	}
	if p.NotFound || p.Gated || !strings.Contains(string(p.HTML), "Big lizards") {
		t.Errorf("page = %+v", p)
	}
}

func TestView_NSFWGate(t *testing.T) {
	svc, _ := testService(t)
	a := page("", "spicy", "secret")
	a.IsNSFW = true
	save(t, svc, a)

	p, _ := svc.View(context.Background(), ViewRequest{Path: wikipath.New("", "spicy")})
	if !p.Gated || p.HTML != "" {
		t.Errorf("gated page = %+v", p)
	}
	p, _ = svc.View(context.Background(), ViewRequest{Path: wikipath.New("", "spicy"), ShowNSFW: true})
	if p.Gated || !strings.Contains(string(p.HTML), "secret") {
		t.Errorf("confirmed page = %+v", p)
	}
}

func TestView_NotFoundFallback(t *testing.T) {
	svc, _ := testService(t)
	p, err := svc.View(context.Background(), ViewRequest{Path: wikipath.New("lore", "ghost")})
	if err != nil {
		t.Fatal(err)
	}
	if !p.NotFound || p.CreateURL != "/new/lore/ghost" {
		t.Errorf("page = %+v", p)
	}
	if !strings.Contains(string(p.HTML), fallbackNotFound) {
		t.Errorf("html = %q", p.HTML)
	}
}

func TestView_NotFoundUsesSpecialPage(t *testing.T) {
	svc, _ := testService(t, WithNotFoundSlug("special:missing"))
	save(t, svc, &models.Article{Title: "Missing", Slug: "special:missing", Markdown: "Nothing here, traveller."})

	p, _ := svc.View(context.Background(), ViewRequest{Path: wikipath.New("", "ghost")})
	if !p.NotFound || !strings.Contains(string(p.HTML), "traveller") {
		t.Errorf("page = %+v", p)
	}
}

func TestView_UnpublishedVisibleToEditors(t *testing.T) {
	svc, _ := testService(t)
	save(t, svc, &models.Article{Title: "Draft", Slug: "draft", Markdown: "wip"})

	p, _ := svc.View(context.Background(), ViewRequest{Path: wikipath.New("", "draft")})
	if !p.NotFound {
		t.Error("anonymous reader should not see drafts")
	}
	p, _ = svc.View(context.Background(), ViewRequest{Path: wikipath.New("", "draft"), Editor: true})
	if p.NotFound || p.Article.Slug != "draft" {
		t.Errorf("editor page = %+v", p)
	}
	p, _ = svc.View(context.Background(), ViewRequest{Path: wikipath.New("", "draft"), Preview: true})
	if p.NotFound {
		t.Error("preview should show drafts")
	}
}

func TestView_RedirectHasNoHTML(t *testing.T) {
	svc, _ := testService(t)
	save(t, svc, page("", "a", "[[REDIRECT:/b]]"))
	save(t, svc, page("", "b", "target"))

	p, _ := svc.View(context.Background(), ViewRequest{Path: wikipath.New("", "a")})
	if p.Resolution.Outcome != Redirected || p.HTML != "" || p.Resolution.URL != "/wiki/b" {
		t.Errorf("page = %+v", p)
	}

	p, _ = svc.View(context.Background(), ViewRequest{Path: wikipath.New("", "a"), NoRedirect: true})
	if p.Resolution.Outcome != Found || !strings.Contains(string(p.HTML), "REDIRECT") {
		t.Errorf("redirect=no page = %+v", p)
	}
}

func TestView_NonStickyConfig(t *testing.T) {
	svc, _ := testService(t, WithStickyRedirects(false))
	save(t, svc, page("", "a", "[[REDIRECT:/b]]"))
	save(t, svc, page("", "b", "[[REDIRECT:/c]]"))
	save(t, svc, page("", "c", "end"))

	p, _ := svc.View(context.Background(), ViewRequest{Path: wikipath.New("", "a")})
	if p.Resolution.Outcome != Redirected || p.Resolution.Article.Slug != "c" {
		t.Errorf("page = %+v", p.Resolution)
	}
}
