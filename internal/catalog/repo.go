package catalog

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/stk/internal/apperr"
	"github.com/starford/stk/internal/bpl"
)

// PlaylistRow represents a row in the playlists table.
type PlaylistRow struct {
	Path       string    `json:"path"`
	Format     string    `json:"format"`
	Checksum   string    `json:"checksum"`
	EntryCount int       `json:"entry_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Summary aggregates the whole catalog.
type Summary struct {
	Playlists  int `json:"playlists"`
	Entries    int `json:"entries"`
	Recordings int `json:"recordings"`
}

// RecordingHit is one playlist entry matching a recording query.
type RecordingHit struct {
	Playlist string `json:"playlist"`
	Position int    `json:"position"`
	FilePath string `json:"file_path"`
}

// UpsertPlaylist replaces a playlist row and all of its entries within a transaction.
func (db *DB) UpsertPlaylist(row PlaylistRow, entries []bpl.Entry) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	_, err = tx.Exec(`
		INSERT INTO playlists (path, format, checksum, entry_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			format      = excluded.format,
			checksum    = excluded.checksum,
			entry_count = excluded.entry_count,
			updated_at  = excluded.updated_at
	`, row.Path, row.Format, row.Checksum, len(entries), row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalog: upsert playlist: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM entries WHERE playlist = ?`, row.Path); err != nil {
		return fmt.Errorf("catalog: clear entries: %w", err)
	}
	if len(entries) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO entries (playlist, position, file_path, norm_path, sections) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("catalog: prepare entry insert: %w", err)
		}
		defer stmt.Close()
		for i, e := range entries {
			sections := e.Sections
			if sections == nil {
				sections = []bpl.Section{}
			}
			secJSON, _ := json.Marshal(sections)
			if _, err := stmt.Exec(row.Path, i, e.Path, bpl.NormalizePath(e.Path), string(secJSON)); err != nil {
				return fmt.Errorf("catalog: insert entry: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeletePlaylist removes a playlist and its entries.
func (db *DB) DeletePlaylist(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM playlists WHERE path = ?`, path); err != nil {
		return fmt.Errorf("catalog: delete playlist: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum for a playlist, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM playlists WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("catalog: get checksum: %w", err)
	}
	return cs, nil
}

// GetPlaylist returns the catalog row of one playlist.
func (db *DB) GetPlaylist(path string) (*PlaylistRow, error) {
	var r PlaylistRow
	err := db.conn.QueryRow(`
		SELECT path, format, checksum, entry_count, updated_at
		FROM playlists WHERE path = ?
	`, path).Scan(&r.Path, &r.Format, &r.Checksum, &r.EntryCount, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get playlist: %w", err)
	}
	return &r, nil
}

// ListPlaylists returns one page of playlists ordered by path and the total count.
func (db *DB) ListPlaylists(limit, offset int) ([]PlaylistRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM playlists`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("catalog: count playlists: %w", err)
	}
	rows, err := db.conn.Query(`
		SELECT path, format, checksum, entry_count, updated_at
		FROM playlists
		ORDER BY path
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: list playlists: %w", err)
	}
	defer rows.Close()

	out := []PlaylistRow{}
	for rows.Next() {
		var r PlaylistRow
		if err := rows.Scan(&r.Path, &r.Format, &r.Checksum, &r.EntryCount, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// Summary counts playlists, their entries and the distinct recordings they reference.
func (db *DB) Summary() (Summary, error) {
	var s Summary
	err := db.conn.QueryRow(`
		SELECT
			(SELECT count(*) FROM playlists),
			(SELECT coalesce(sum(entry_count), 0) FROM playlists),
			(SELECT count(DISTINCT norm_path) FROM entries)
	`).Scan(&s.Playlists, &s.Entries, &s.Recordings)
	if err != nil {
		return Summary{}, fmt.Errorf("catalog: summary: %w", err)
	}
	return s, nil
}

// likeEscaper escapes LIKE wildcards. '!' is the escape character since
// recording paths are full of backslashes.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// FindRecording returns entries whose normalized path contains query.
func (db *DB) FindRecording(query string, limit int) ([]RecordingHit, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + likeEscaper.Replace(bpl.NormalizePath(strings.TrimSpace(query))) + "%"
	rows, err := db.conn.Query(`
		SELECT playlist, position, file_path
		FROM entries
		WHERE norm_path LIKE ? ESCAPE '!'
		ORDER BY playlist, position
		LIMIT ?
	`, like, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: find recording: %w", err)
	}
	defer rows.Close()

	out := []RecordingHit{}
	for rows.Next() {
		var h RecordingHit
		if err := rows.Scan(&h.Playlist, &h.Position, &h.FilePath); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// PlaylistsContaining returns every playlist that references recording,
// compared on the normalized path.
func (db *DB) PlaylistsContaining(recording string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT DISTINCT playlist FROM entries WHERE norm_path = ? ORDER BY playlist
	`, bpl.NormalizePath(strings.TrimSpace(recording)))
	if err != nil {
		return nil, fmt.Errorf("catalog: playlists containing: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// AllChecksums returns path → checksum for every catalogued playlist.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM playlists`)
	if err != nil {
		return nil, fmt.Errorf("catalog: all checksums: %w", err)
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
