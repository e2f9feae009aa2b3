package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// VaultChecksum returns the checksum recorded for a vault file, or "" when unknown.
func (db *DB) VaultChecksum(ctx context.Context, path string) (string, error) {
	var cs string
	err := db.conn.QueryRowContext(ctx, `SELECT checksum FROM vault_files WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("store: vault checksum: %w", err)
	}
	return cs, nil
}

// SetVaultChecksum records the checksum of a vault file last imported or exported.
func (db *DB) SetVaultChecksum(ctx context.Context, path, checksum string) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO vault_files (path, checksum) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET checksum = excluded.checksum
	`, path, checksum)
	if err != nil {
		return fmt.Errorf("store: set vault checksum: %w", err)
	}
	return nil
}

// AllVaultChecksums returns path → checksum for every recorded vault file.
func (db *DB) AllVaultChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT path, checksum FROM vault_files`)
	if err != nil {
		return nil, fmt.Errorf("store: all vault checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// DeleteVaultChecksum forgets a vault file, so it is imported again if it reappears.
func (db *DB) DeleteVaultChecksum(ctx context.Context, path string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM vault_files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("store: delete vault checksum: %w", err)
	}
	return nil
}
