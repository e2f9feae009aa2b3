package wiki

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/langthil/internal/apperr"
	"github.com/starford/langthil/internal/wikipath"
)

func TestOnMove_CreatesStub(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := testService(t, WithPublisher(pub))
	ctx := context.Background()
	a := page("lore", "wyrms", "body")
	a.IsNSFW = true
	save(t, svc, a)

	stub, err := svc.OnMove(ctx, a, "old", "Wyrm")
	if err != nil {
		t.Fatalf("OnMove: %v", err)
	}
	if stub == nil {
		t.Fatal("expected a stub")
	}
	if stub.Path().String() != "old/wyrm" || stub.Markdown != "[[REDIRECT:/lore/wyrms]]" {
		t.Errorf("stub = %s %q", stub.Path(), stub.Markdown)
	}
	if stub.Title != a.Title || !stub.IsPublished || !stub.IsNSFW {
		t.Errorf("stub flags not copied: %+v", stub)
	}

	res, _ := svc.Resolve(ctx, wikipath.New("old", "wyrm"), DefaultResolveOptions())
	if res.Outcome != Redirected || res.Article.Slug != "wyrms" {
		t.Errorf("old path resolves to %v %+v", res.Outcome, res)
	}

	found := false
	for _, e := range pub.events {
		if e == EventArticleMoved+":old/wyrm->lore/wyrms" {
			found = true
		}
	}
	if !found {
		t.Errorf("events = %v", pub.events)
	}
}

func TestOnMove_CaseOnlyIsNoop(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	a := save(t, svc, page("lore", "wyrms", "body"))

	stub, err := svc.OnMove(ctx, a, "LORE", "Wyrms")
	if err != nil || stub != nil {
		t.Errorf("OnMove = %+v, %v", stub, err)
	}
	_, total, _ := svc.ListArticles(ctx, "", 0, 0)
	if total != 1 {
		t.Errorf("articles = %d, want 1", total)
	}
}

func TestMove(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	a := save(t, svc, page("", "draft-name", "body"))

	moved, stub, err := svc.Move(ctx, a.ID, wikipath.New("lore", "final-name"))
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if moved.ID != a.ID || moved.Path().String() != "lore/final-name" {
		t.Errorf("moved = %+v", moved)
	}
	if stub == nil || stub.Path().String() != "draft-name" {
		t.Errorf("stub = %+v", stub)
	}
}

func TestMove_ConflictKeepsOriginal(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	a := save(t, svc, page("", "one", "1"))
	save(t, svc, page("", "two", "2"))

	_, _, err := svc.Move(ctx, a.ID, wikipath.New("", "TWO"))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	got, err := svc.ArticleAt(ctx, wikipath.New("", "one"), false)
	if err != nil || got.ID != a.ID {
		t.Errorf("original moved anyway: %v", err)
	}
}

func TestMove_MissingArticle(t *testing.T) {
	svc, _ := testService(t)
	_, _, err := svc.Move(context.Background(), "nope", wikipath.New("", "x"))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
