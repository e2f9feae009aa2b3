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

// FindTerm returns the glossary term with id, or apperr.ErrNotFound.
func (db *DB) FindTerm(ctx context.Context, id string) (*models.Term, error) {
	var t models.Term
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, term, definition FROM terms WHERE id = ?`, id,
	).Scan(&t.ID, &t.Term, &t.Definition)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("store: find term: %w", err)
	}
	return &t, nil
}

// SaveTerm inserts or updates t. Terms are unique regardless of case; a
// collision yields apperr.ErrConflict.
func (db *DB) SaveTerm(ctx context.Context, t *models.Term) error {
	id := t.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO terms (id, term, definition) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			term       = excluded.term,
			definition = excluded.definition
	`, id, t.Term, t.Definition)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("store: term %q: %w", t.Term, apperr.ErrConflict)
		}
		return fmt.Errorf("store: save term: %w", err)
	}
	t.ID = id
	return nil
}

// ListTerms returns the glossary in alphabetical order.
func (db *DB) ListTerms(ctx context.Context) ([]models.Term, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, term, definition FROM terms ORDER BY term COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("store: list terms: %w", err)
	}
	defer rows.Close()

	var out []models.Term
	for rows.Next() {
		var t models.Term
		if err := rows.Scan(&t.ID, &t.Term, &t.Definition); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
