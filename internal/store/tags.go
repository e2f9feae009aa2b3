package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/starford/langthil/internal/apperr"
	"github.com/starford/langthil/internal/models"
)

// FindTag returns the tag with slug (case-insensitive), or apperr.ErrNotFound.
func (db *DB) FindTag(ctx context.Context, slug string) (*models.Tag, error) {
	var t models.Tag
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, slug, description FROM tags WHERE slug = ? COLLATE NOCASE`, slug,
	).Scan(&t.ID, &t.Name, &t.Slug, &t.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: find tag: %w", err)
	}
	return &t, nil
}

// SaveTag inserts or updates t; a slug collision yields apperr.ErrConflict.
func (db *DB) SaveTag(ctx context.Context, t *models.Tag) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO tags (id, name, slug, description) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name        = excluded.name,
			slug        = excluded.slug,
			description = excluded.description
	`, t.ID, t.Name, t.Slug, t.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("store: tag %s: %w", t.Slug, apperr.ErrConflict)
		}
		return fmt.Errorf("store: save tag: %w", err)
	}
	return nil
}

// ListTags returns every tag ordered by name.
func (db *DB) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name, slug, description FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list tags: %w", err)
	}
	defer rows.Close()

	var out []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Description); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TagArticles returns the articles carrying tagID, ordered by slug.
func (db *DB) TagArticles(ctx context.Context, tagID string, publishedOnly bool) ([]models.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles a
		JOIN article_tags atg ON atg.article_id = a.id
		WHERE atg.tag_id = ?`
	if publishedOnly {
		query += ` AND a.is_published = 1`
	}
	rows, err := db.conn.QueryContext(ctx, query+` ORDER BY a.slug`, tagID)
	if err != nil {
		return nil, fmt.Errorf("store: tag articles: %w", err)
	}
	return collectArticles(ctx, db.conn, rows)
}

func loadTags(ctx context.Context, qr queryer, articleID string) ([]models.Tag, error) {
	rows, err := qr.QueryContext(ctx, `
		SELECT t.id, t.name, t.slug, t.description FROM tags t
		JOIN article_tags atg ON atg.tag_id = t.id
		WHERE atg.article_id = ?
		ORDER BY t.name
	`, articleID)
	if err != nil {
		return nil, fmt.Errorf("store: load tags: %w", err)
	}
	defer rows.Close()

	out := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.Description); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
