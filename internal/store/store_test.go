package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/langthil/internal/apperr"
	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/wikipath"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "langthil-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustSave(t *testing.T, db *DB, a *models.Article) *models.Article {
	t.Helper()
	if err := db.SaveArticle(context.Background(), a); err != nil {
		t.Fatalf("SaveArticle(%s): %v", a.Path(), err)
	}
	return a
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"articles", "tags", "article_tags", "links", "terms", "vault_files"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestSaveAndFindByPath_CaseInsensitive(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	published := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	a := mustSave(t, db, &models.Article{
		Title: "Dragons", Namespace: "lore", Slug: "dragons", IsPublished: true, Published: &published, Markdown: "big",
	})
	if a.ID == "" {
		t.Fatal("ID should be assigned")
	}

	got, err := db.FindArticle(ctx, ByPath(wikipath.WikiPath{Namespace: "LORE", Slug: "Dragons"}, true))
	if err != nil {
		t.Fatalf("FindArticle: %v", err)
	}
	if got.ID != a.ID || got.Markdown != "big" {
		t.Errorf("got %+v", got)
	}
	if got.Published == nil || !got.Published.Equal(published) {
		t.Errorf("published = %v", got.Published)
	}
	if got.Tags == nil {
		t.Error("tags should be a non-nil slice")
	}
}

func TestFindArticle_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.FindArticle(context.Background(), ByPath(wikipath.New("", "nope"), false))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFindArticle_PublishedOnly(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	mustSave(t, db, &models.Article{Title: "Draft", Slug: "draft"})

	if _, err := db.FindArticle(ctx, ByPath(wikipath.New("", "draft"), true)); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unpublished article visible to published-only query: %v", err)
	}
	if _, err := db.FindArticle(ctx, ByPath(wikipath.New("", "draft"), false)); err != nil {
		t.Errorf("unpublished article hidden from full query: %v", err)
	}
}

func TestSaveArticle_CaseInsensitiveConflict(t *testing.T) {
	db := testDB(t)
	mustSave(t, db, &models.Article{Title: "One", Namespace: "lore", Slug: "dragons"})

	err := db.SaveArticle(context.Background(), &models.Article{Title: "Two", Namespace: "Lore", Slug: "DRAGONS"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestSaveArticle_SameSlugOtherNamespace(t *testing.T) {
	db := testDB(t)
	mustSave(t, db, &models.Article{Title: "One", Namespace: "lore", Slug: "dragons"})
	if err := db.SaveArticle(context.Background(), &models.Article{Title: "Two", Namespace: "rules", Slug: "dragons"}); err != nil {
		t.Errorf("same slug in another namespace should be allowed: %v", err)
	}
}

func TestSaveArticle_UpdateKeepsIdentity(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a := mustSave(t, db, &models.Article{Title: "Old", Slug: "page", Markdown: "v1"})
	a.Title = "New"
	a.Markdown = "v2"
	mustSave(t, db, a)

	got, err := db.FindArticle(ctx, ArticleQuery{ID: a.ID})
	if err != nil {
		t.Fatalf("FindArticle: %v", err)
	}
	if got.Title != "New" || got.Markdown != "v2" {
		t.Errorf("got %+v", got)
	}
	_, total, _ := db.ListArticles(ctx, ListQuery{})
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
}

func TestTags(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	tag := &models.Tag{Name: "Lore", Slug: "lore", Description: "World *lore*"}
	if err := db.SaveTag(ctx, tag); err != nil {
		t.Fatalf("SaveTag: %v", err)
	}
	if err := db.SaveTag(ctx, &models.Tag{Name: "Dup", Slug: "LORE"}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate tag slug err = %v, want ErrConflict", err)
	}

	mustSave(t, db, &models.Article{Title: "A", Slug: "a", IsPublished: true, Tags: []models.Tag{*tag}})
	mustSave(t, db, &models.Article{Title: "B", Slug: "b", Tags: []models.Tag{*tag}})

	got, err := db.FindTag(ctx, "Lore")
	if err != nil || got.ID != tag.ID {
		t.Fatalf("FindTag = %+v, %v", got, err)
	}
	all, err := db.TagArticles(ctx, tag.ID, false)
	if err != nil || len(all) != 2 {
		t.Errorf("TagArticles(all) = %d, %v", len(all), err)
	}
	pub, _ := db.TagArticles(ctx, tag.ID, true)
	if len(pub) != 1 || pub[0].Slug != "a" {
		t.Errorf("TagArticles(published) = %+v", pub)
	}
	if len(pub) == 1 && (len(pub[0].Tags) != 1 || pub[0].Tags[0].Slug != "lore") {
		t.Errorf("article tags = %+v", pub[0].Tags)
	}

	if err := db.SaveTag(ctx, &models.Tag{Name: "Beasts", Slug: "beasts"}); err != nil {
		t.Fatal(err)
	}
	tags, err := db.ListTags(ctx)
	if err != nil || len(tags) != 2 || tags[0].Name != "Beasts" {
		t.Errorf("ListTags = %+v, %v", tags, err)
	}
}

func TestListArticles_Filters(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	mustSave(t, db, &models.Article{Title: "Home", Slug: "home", IsPublished: true})
	mustSave(t, db, &models.Article{Title: "404", Slug: "special:404", IsPublished: true})
	mustSave(t, db, &models.Article{Title: "Dragons", Namespace: "lore", Slug: "dragons", IsPublished: true})
	mustSave(t, db, &models.Article{Title: "Wyrms", Namespace: "lore/beasts", Slug: "wyrms", IsPublished: true})
	mustSave(t, db, &models.Article{Title: "Draft", Namespace: "lore", Slug: "draft"})
	mustSave(t, db, &models.Article{Title: "Other", Namespace: "lorem", Slug: "ipsum", IsPublished: true})

	items, total, err := db.ListArticles(ctx, ListQuery{PublishedOnly: true, ExcludeSpecial: true})
	if err != nil {
		t.Fatalf("ListArticles: %v", err)
	}
	if total != 4 || len(items) != 4 {
		t.Errorf("published non-special = %d/%d, want 4", len(items), total)
	}
	for _, a := range items {
		if a.IsSpecial() || !a.IsPublished {
			t.Errorf("unexpected article %s", a.Path())
		}
	}

	_, total, _ = db.ListArticles(ctx, ListQuery{Namespace: "lore"})
	if total != 3 {
		t.Errorf("namespace lore total = %d, want 3", total)
	}

	page, total, _ := db.ListArticles(ctx, ListQuery{Limit: 2, Offset: 2})
	if total != 6 || len(page) != 2 {
		t.Errorf("page = %d/%d", len(page), total)
	}
}

func TestBacklinks(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	mustSave(t, db, &models.Article{Title: "A", Namespace: "lore", Slug: "a", IsPublished: true, Markdown: "see [[dragons]]"})
	mustSave(t, db, &models.Article{Title: "B", Slug: "b", Markdown: "see [[/Lore/Dragons|them]]"})
	mustSave(t, db, &models.Article{Title: "R", Slug: "r", Markdown: "[[REDIRECT:/lore/dragons]]"})

	bl, err := db.Backlinks(ctx, wikipath.New("lore", "dragons"), false)
	if err != nil {
		t.Fatalf("Backlinks: %v", err)
	}
	if len(bl) != 2 {
		t.Fatalf("backlinks = %v, want 2", bl)
	}
	pub, _ := db.Backlinks(ctx, wikipath.New("lore", "dragons"), true)
	if len(pub) != 1 || pub[0].Slug != "a" {
		t.Errorf("published backlinks = %v", pub)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	mustSave(t, db, &models.Article{Title: "Search Me", Slug: "s", IsPublished: true, Markdown: "uniqueword appears here"})
	mustSave(t, db, &models.Article{Title: "Hidden", Slug: "h", Markdown: "uniqueword in a draft"})

	results, err := db.Search(ctx, "uniqueword", 10, true)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Slug != "s" {
		t.Errorf("search results = %+v, want 1 hit for s", results)
	}
}

func TestVaultChecksums(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	cs, err := db.VaultChecksum(ctx, "missing.md")
	if err != nil || cs != "" {
		t.Errorf("missing checksum = %q, %v", cs, err)
	}
	_ = db.SetVaultChecksum(ctx, "lore/dragons.md", "1")
	_ = db.SetVaultChecksum(ctx, "lore/dragons.md", "2")
	all, err := db.AllVaultChecksums(ctx)
	if err != nil || all["lore/dragons.md"] != "2" || len(all) != 1 {
		t.Errorf("all = %v, %v", all, err)
	}
}

func TestTerms(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	wyrm := &models.Term{Term: "Wyrm", Definition: "A wingless dragon."}
	if err := db.SaveTerm(ctx, wyrm); err != nil {
		t.Fatalf("SaveTerm: %v", err)
	}
	if wyrm.ID == "" {
		t.Fatal("ID should be assigned")
	}
	if err := db.SaveTerm(ctx, &models.Term{Term: "WYRM", Definition: "dup"}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate term err = %v, want ErrConflict", err)
	}
	if err := db.SaveTerm(ctx, &models.Term{Term: "ancient", Definition: "Very old."}); err != nil {
		t.Fatal(err)
	}

	wyrm.Definition = "A great serpent."
	if err := db.SaveTerm(ctx, wyrm); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := db.FindTerm(ctx, wyrm.ID)
	if err != nil || got.Definition != "A great serpent." {
		t.Errorf("FindTerm = %+v, %v", got, err)
	}
	if _, err := db.FindTerm(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing term err = %v", err)
	}

	terms, err := db.ListTerms(ctx)
	if err != nil || len(terms) != 2 || terms[0].Term != "ancient" || terms[1].Term != "Wyrm" {
		t.Errorf("ListTerms = %+v, %v", terms, err)
	}
}
