package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/yearwheel/internal/models"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Path       string
	ID         string
	Title      string
	Date       models.Date
	Checksum   string
	CustomLine bool
	UpdatedAt  time.Time
}

// RowFromNote builds the index row of a note stored at path.
func RowFromNote(path string, n *models.Note, sum string) NoteRow {
	updated := n.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	return NoteRow{
		Path:       path,
		ID:         n.ID,
		Title:      n.Title,
		Date:       n.Date,
		Checksum:   sum,
		CustomLine: n.ConnectionLine.HasPoints(),
		UpdatedAt:  updated,
	}
}

// SearchResult is one search hit, dated so clients can highlight the day
// on the wheel.
type SearchResult struct {
	Path    string      `json:"path"`
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Date    models.Date `json:"date"`
	Snippet string      `json:"snippet"`
}

const defaultSearchLimit = 20

// scanResults reads rows of (path, id, title, year, month, day, snippet).
func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.ID, &r.Title, &r.Date.Year, &r.Date.Month, &r.Date.Day, &r.Snippet); err != nil {
			return nil, fmt.Errorf("index: scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertNote inserts or replaces a note and its FTS entry within a transaction.
func (db *DB) UpsertNote(n NoteRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	// A note that moved to another year changes path but keeps its id.
	if _, err := tx.Exec(`DELETE FROM notes WHERE id = ? AND path <> ?`, n.ID, n.Path); err != nil {
		return fmt.Errorf("index: drop stale path: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO notes (path, id, title, year, month, day, checksum, custom_line, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			id          = excluded.id,
			title       = excluded.title,
			year        = excluded.year,
			month       = excluded.month,
			day         = excluded.day,
			checksum    = excluded.checksum,
			custom_line = excluded.custom_line,
			body        = excluded.body,
			updated_at  = excluded.updated_at
	`, n.Path, n.ID, n.Title, n.Date.Year, n.Date.Month, n.Date.Day, n.Checksum, n.CustomLine, body, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, n.Path, n.ID, n.Title, body); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteNote removes a note and its FTS entry.
func (db *DB) DeleteNote(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	if _, err := tx.Exec(`DELETE FROM notes WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete note: %w", err)
	}

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a note, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM notes WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns the checksum of every indexed note keyed by path.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
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

// ListNotes returns the notes of year in calendar order. Year 0 lists every
// note.
func (db *DB) ListNotes(year int) ([]NoteRow, error) {
	rows, err := db.conn.Query(`
		SELECT path, id, title, year, month, day, checksum, custom_line, updated_at
		FROM notes
		WHERE ? = 0 OR year = ?
		ORDER BY year, month, day, id
	`, year, year)
	if err != nil {
		return nil, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRow
	for rows.Next() {
		var r NoteRow
		if err := rows.Scan(&r.Path, &r.ID, &r.Title, &r.Date.Year, &r.Date.Month, &r.Date.Day,
			&r.Checksum, &r.CustomLine, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
