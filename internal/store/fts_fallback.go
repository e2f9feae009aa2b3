//go:build !sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over articles.title and articles.markdown.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string) error {
	return nil
}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
// Redirect stubs are skipped.
func (db *DB) Search(ctx context.Context, query string, limit int, publishedOnly bool) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + escapeLike(query) + "%"
	filter := ""
	if publishedOnly {
		filter = " AND is_published = 1"
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT namespace, slug, title, substr(markdown, 1, 200)
		FROM articles
		WHERE (title LIKE ? ESCAPE '\' OR markdown LIKE ? ESCAPE '\')
		  AND markdown NOT LIKE '[[REDIRECT:%'`+filter+`
		ORDER BY slug
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Namespace, &r.Slug, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
