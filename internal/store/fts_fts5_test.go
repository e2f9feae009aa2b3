//go:build sqlite_fts5

package store

import (
	"context"
	"testing"

	"github.com/starford/langthil/internal/models"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM articles_fts`).Scan(&count); err != nil {
		t.Fatalf("articles_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	mustSave(t, db, &models.Article{
		Title: "FTS", Slug: "fts", IsPublished: true,
		Markdown: "Langthil provides powerful full-text search capabilities.",
	})

	results, err := db.Search(context.Background(), "powerful", 10, true)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_UpsertReplacesContent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a := mustSave(t, db, &models.Article{Title: "Old", Slug: "evo", IsPublished: true, Markdown: "original text"})
	a.Title = "New"
	a.Markdown = "replacement text"
	mustSave(t, db, a)

	results, _ := db.Search(ctx, "original", 10, true)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search(ctx, "replacement", 10, true)
	if len(results) != 1 || results[0].Title != "New" {
		t.Errorf("FTS not updated: %+v", results)
	}
}
