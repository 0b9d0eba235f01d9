// Package ledger keeps a SQLite history of delivered drawings.
package ledger

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/inkpad/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS drawings (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	note       TEXT NOT NULL,
	attachment TEXT NOT NULL,
	draft      TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_drawings_note ON drawings(note);
`

const defaultLimit = 50

// Store records and lists delivered drawings.
type Store interface {
	Record(d models.Drawing) (int64, error)
	List(note string, limit int) ([]models.Drawing, error)
}

// DB wraps a sql.DB with ledger-specific operations.
type DB struct {
	conn *sql.DB
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("ledger: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ledger: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Record inserts a delivered drawing and returns its id. A zero CreatedAt is
// set to the current time.
func (db *DB) Record(d models.Drawing) (int64, error) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	res, err := db.conn.Exec(`
		INSERT INTO drawings (note, attachment, draft, checksum, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, d.Note, d.Attachment, d.Draft, d.Checksum, d.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("ledger: record: %w", err)
	}
	return res.LastInsertId()
}

// List returns recorded drawings newest first. An empty note lists all.
func (db *DB) List(note string, limit int) ([]models.Drawing, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	query := `SELECT id, note, attachment, draft, checksum, created_at FROM drawings`
	args := []any{}
	if note != "" {
		query += ` WHERE note = ?`
		args = append(args, note)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	defer rows.Close()

	var out []models.Drawing
	for rows.Next() {
		var d models.Drawing
		if err := rows.Scan(&d.ID, &d.Note, &d.Attachment, &d.Draft, &d.Checksum, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
