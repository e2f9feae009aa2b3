// Package store provides the SQLite-backed article, tag and glossary store
// with optional FTS5 full-text search.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// The unique indexes on (namespace, slug) and tag slug are the storage-side
// half of the case-insensitive uniqueness rule; SaveArticle adds the
// application-side pre-check inside the same transaction.
const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS articles (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	namespace    TEXT NOT NULL DEFAULT '',
	slug         TEXT NOT NULL,
	published    DATETIME,
	edited       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	is_published INTEGER NOT NULL DEFAULT 0,
	is_nsfw      INTEGER NOT NULL DEFAULT 0,
	is_spoiler   INTEGER NOT NULL DEFAULT 0,
	markdown     TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_articles_path
	ON articles(namespace COLLATE NOCASE, slug COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS tags (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	slug        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tags_slug ON tags(slug COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS article_tags (
	article_id TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	tag_id     TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (article_id, tag_id)
);

CREATE TABLE IF NOT EXISTS links (
	source TEXT NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
	target TEXT NOT NULL,
	UNIQUE(source, target)
);

CREATE INDEX IF NOT EXISTS idx_links_target ON links(target COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS terms (
	id         TEXT PRIMARY KEY,
	term       TEXT NOT NULL,
	definition TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_terms_term ON terms(term COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS vault_files (
	path     TEXT PRIMARY KEY,
	checksum TEXT NOT NULL
);
`

// DB wraps a sql.DB with store-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
