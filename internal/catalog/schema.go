// Package catalog provides a SQLite-backed index of the playlist library:
// which playlists exist and which recordings each of them references.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS playlists (
	path        TEXT PRIMARY KEY,
	format      TEXT NOT NULL DEFAULT '',
	checksum    TEXT NOT NULL DEFAULT '',
	entry_count INTEGER NOT NULL DEFAULT 0,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS entries (
	playlist  TEXT NOT NULL REFERENCES playlists(path) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	file_path TEXT NOT NULL,
	norm_path TEXT NOT NULL,
	sections  TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (playlist, position)
);

CREATE INDEX IF NOT EXISTS idx_entries_norm ON entries(norm_path);
`

// DB wraps a sql.DB with catalog-specific operations.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	return &DB{conn: conn, path: dsn}, nil
}

// Path returns the database file the catalog was opened from.
func (db *DB) Path() string {
	return db.path
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
