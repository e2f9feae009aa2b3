package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/langthil/internal/apperr"
	"github.com/starford/langthil/internal/models"
	"github.com/starford/langthil/internal/parser"
	"github.com/starford/langthil/internal/wikipath"
)

const articleColumns = `a.id, a.title, a.namespace, a.slug, a.published, a.edited,
	a.is_published, a.is_nsfw, a.is_spoiler, a.markdown`

// ArticleQuery selects a single article. Zero fields do not filter.
type ArticleQuery struct {
	ID string
	// Path matches namespace and slug case-insensitively.
	Path          *wikipath.WikiPath
	PublishedOnly bool
	ExcludeID     string
}

// ByPath is a shorthand for an ArticleQuery on p.
func ByPath(p wikipath.WikiPath, publishedOnly bool) ArticleQuery {
	return ArticleQuery{Path: &p, PublishedOnly: publishedOnly}
}

func (q ArticleQuery) where() (string, []any) {
	var clauses []string
	var args []any
	if q.ID != "" {
		clauses = append(clauses, "a.id = ?")
		args = append(args, q.ID)
	}
	if q.Path != nil {
		clauses = append(clauses, "a.namespace = ? COLLATE NOCASE", "a.slug = ? COLLATE NOCASE")
		args = append(args, q.Path.Namespace, q.Path.Slug)
	}
	if q.PublishedOnly {
		clauses = append(clauses, "a.is_published = 1")
	}
	if q.ExcludeID != "" {
		clauses = append(clauses, "a.id <> ?")
		args = append(args, q.ExcludeID)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListQuery filters article listings.
type ListQuery struct {
	// Namespace restricts to the namespace and everything beneath it.
	Namespace      string
	PublishedOnly  bool
	ExcludeSpecial bool
	Limit          int
	Offset         int
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(s scanner) (*models.Article, error) {
	var a models.Article
	var published sql.NullTime
	if err := s.Scan(&a.ID, &a.Title, &a.Namespace, &a.Slug, &published, &a.Edited,
		&a.IsPublished, &a.IsNSFW, &a.IsSpoiler, &a.Markdown); err != nil {
		return nil, err
	}
	if published.Valid {
		t := published.Time
		a.Published = &t
	}
	return &a, nil
}

// FindArticle returns the article matching q, or apperr.ErrNotFound.
func (db *DB) FindArticle(ctx context.Context, q ArticleQuery) (*models.Article, error) {
	where, args := q.where()
	row := db.conn.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles a`+where+` LIMIT 1`, args...)
	a, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: find article: %w", err)
	}
	if a.Tags, err = loadTags(ctx, db.conn, a.ID); err != nil {
		return nil, err
	}
	return a, nil
}

// ArticleExists reports whether any article matches q.
func (db *DB) ArticleExists(ctx context.Context, q ArticleQuery) (bool, error) {
	return articleExists(ctx, db.conn, q)
}

func articleExists(ctx context.Context, qr queryer, q ArticleQuery) (bool, error) {
	where, args := q.where()
	var n int
	if err := qr.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM articles a`+where+`)`, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("store: article exists: %w", err)
	}
	return n == 1, nil
}

// SaveArticle inserts or updates a. The case-insensitive (namespace, slug)
// check runs in the write transaction; a collision yields apperr.ErrConflict.
// A missing ID is assigned. Tags must already be saved.
func (db *DB) SaveArticle(ctx context.Context, a *models.Article) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	p := a.Path()
	taken, err := articleExists(ctx, tx, ArticleQuery{Path: &p, ExcludeID: a.ID})
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("store: %s: %w", p, apperr.ErrConflict)
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Edited.IsZero() {
		a.Edited = time.Now()
	}
	var published any
	if a.Published != nil {
		published = *a.Published
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO articles (id, title, namespace, slug, published, edited, is_published, is_nsfw, is_spoiler, markdown)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title        = excluded.title,
			namespace    = excluded.namespace,
			slug         = excluded.slug,
			published    = excluded.published,
			edited       = excluded.edited,
			is_published = excluded.is_published,
			is_nsfw      = excluded.is_nsfw,
			is_spoiler   = excluded.is_spoiler,
			markdown     = excluded.markdown
	`, a.ID, a.Title, a.Namespace, a.Slug, published, a.Edited, a.IsPublished, a.IsNSFW, a.IsSpoiler, a.Markdown)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("store: %s: %w", p, apperr.ErrConflict)
		}
		return fmt.Errorf("store: upsert article: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM article_tags WHERE article_id = ?`, a.ID); err != nil {
		return fmt.Errorf("store: clear tags: %w", err)
	}
	for _, t := range a.Tags {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO article_tags (article_id, tag_id) VALUES (?, ?)`, a.ID, t.ID); err != nil {
			return fmt.Errorf("store: link tag %s: %w", t.Slug, err)
		}
	}

	if err := replaceLinks(ctx, tx, a); err != nil {
		return err
	}
	if err := ftsUpsert(tx, a.ID, a.Title, a.Markdown); err != nil {
		return err
	}

	return tx.Commit()
}

// replaceLinks indexes the outgoing wikilinks of a by normalized target path.
func replaceLinks(ctx context.Context, tx *sql.Tx, a *models.Article) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM links WHERE source = ?`, a.ID); err != nil {
		return fmt.Errorf("store: clear links: %w", err)
	}
	targets := parser.ExtractLinks(a.Markdown)
	if len(targets) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO links (source, target) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare link insert: %w", err)
	}
	defer stmt.Close()
	for _, raw := range targets {
		target, err := wikipath.Resolve(a.Namespace, raw)
		if err != nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, a.ID, target.String()); err != nil {
			return fmt.Errorf("store: insert link: %w", err)
		}
	}
	return nil
}

// ListArticles returns a page of articles ordered by slug, and the total match count.
func (db *DB) ListArticles(ctx context.Context, q ListQuery) ([]models.Article, int, error) {
	var clauses []string
	var args []any
	if q.Namespace != "" {
		clauses = append(clauses, "(a.namespace = ? COLLATE NOCASE OR a.namespace LIKE ? ESCAPE '\\')")
		args = append(args, q.Namespace, escapeLike(q.Namespace)+"/%")
	}
	if q.PublishedOnly {
		clauses = append(clauses, "a.is_published = 1")
	}
	if q.ExcludeSpecial {
		clauses = append(clauses, "a.slug NOT LIKE ?")
		args = append(args, wikipath.SpecialPrefix+"%")
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM articles a`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("store: count articles: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM articles a`+where+` ORDER BY a.slug COLLATE NOCASE, a.namespace COLLATE NOCASE LIMIT ? OFFSET ?`,
		append(args, limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list articles: %w", err)
	}
	out, err := collectArticles(ctx, db.conn, rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Backlinks returns the paths of articles linking to target.
func (db *DB) Backlinks(ctx context.Context, target wikipath.WikiPath, publishedOnly bool) ([]wikipath.WikiPath, error) {
	query := `SELECT a.namespace, a.slug FROM links l JOIN articles a ON a.id = l.source
		WHERE l.target = ? COLLATE NOCASE`
	if publishedOnly {
		query += ` AND a.is_published = 1`
	}
	rows, err := db.conn.QueryContext(ctx, query+` ORDER BY a.slug`, target.String())
	if err != nil {
		return nil, fmt.Errorf("store: backlinks: %w", err)
	}
	defer rows.Close()

	var out []wikipath.WikiPath
	for rows.Next() {
		var p wikipath.WikiPath
		if err := rows.Scan(&p.Namespace, &p.Slug); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// collectArticles drains rows and attaches tags to each article.
func collectArticles(ctx context.Context, qr queryer, rows *sql.Rows) ([]models.Article, error) {
	var out []models.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("store: scan article: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		tags, err := loadTags(ctx, qr, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Tags = tags
	}
	return out, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
