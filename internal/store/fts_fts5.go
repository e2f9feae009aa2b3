//go:build sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS articles_fts USING fts5(
			id UNINDEXED,
			title,
			markdown,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, id, title, markdown string) error {
	_, _ = tx.Exec(`DELETE FROM articles_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO articles_fts (id, title, markdown) VALUES (?, ?, ?)`, id, title, markdown)
	if err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns matching results with snippets.
// Redirect stubs are skipped.
func (db *DB) Search(ctx context.Context, query string, limit int, publishedOnly bool) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	filter := ""
	if publishedOnly {
		filter = " AND a.is_published = 1"
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT a.namespace,
		       a.slug,
		       a.title,
		       snippet(articles_fts, 2, '<b>', '</b>', '...', 64)
		FROM articles_fts
		JOIN articles a ON a.id = articles_fts.id
		WHERE articles_fts MATCH ?
		  AND a.markdown NOT LIKE '[[REDIRECT:%'`+filter+`
		ORDER BY rank
		LIMIT ?
	`, query, limit)
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
