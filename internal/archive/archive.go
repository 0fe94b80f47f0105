// Package archive keeps a durable transcript of every exchange the bot
// handles, backed by SQLite via modernc.org/sqlite (pure Go, no CGO).
// Conversation memory itself lives in the session store; the archive is
// append-only history for audits and the admin API.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const defaultBusyTimeout = 5000

// Entry is one archived exchange.
type Entry struct {
	ID         int64     `json:"id"`
	ChannelID  string    `json:"channel_id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	Escalated  bool      `json:"escalated"`
	CreatedAt  time.Time `json:"created_at"`
}

// Archive is a SQLite-backed transcript store.
type Archive struct {
	db *sql.DB
}

// Open opens (or creates) the archive database at the given path.
//
// The database uses WAL mode, a 5 s busy timeout, and a single
// connection (SQLite serialises writes). The schema is migrated
// automatically.
func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("archive: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	ctx := context.TODO()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Archive{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	channel_id  TEXT NOT NULL,
	author_id   TEXT NOT NULL,
	author_name TEXT NOT NULL DEFAULT '',
	role        TEXT NOT NULL,
	content     TEXT NOT NULL,
	escalated   INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcripts_channel ON transcripts(channel_id, id);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("archive: migrate schema: %w", err)
	}
	return nil
}

// Record appends one exchange to the transcript.
func (a *Archive) Record(ctx context.Context, e Entry) error {
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := a.db.ExecContext(ctx,
		`INSERT INTO transcripts (channel_id, author_id, author_name, role, content, escalated, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ChannelID, e.AuthorID, e.AuthorName, e.Role, e.Content,
		boolToInt(e.Escalated), createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("archive: insert transcript: %w", err)
	}
	return nil
}

// Recent returns the most recent entries for a channel, newest first.
func (a *Archive) Recent(ctx context.Context, channelID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := a.db.QueryContext(ctx,
		`SELECT id, channel_id, author_id, author_name, role, content, escalated, created_at
		 FROM transcripts WHERE channel_id = ? ORDER BY id DESC LIMIT ?`,
		channelID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("archive: query transcripts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var escalated int
		var createdAt string
		if err := rows.Scan(&e.ID, &e.ChannelID, &e.AuthorID, &e.AuthorName, &e.Role, &e.Content, &escalated, &createdAt); err != nil {
			return nil, fmt.Errorf("archive: scan transcript: %w", err)
		}
		e.Escalated = escalated != 0
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("archive: parse created_at %q: %w", createdAt, err)
		}
		e.CreatedAt = ts
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate transcripts: %w", err)
	}
	return entries, nil
}

// Channels lists the distinct channel ids present in the archive.
func (a *Archive) Channels(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT DISTINCT channel_id FROM transcripts ORDER BY channel_id`)
	if err != nil {
		return nil, fmt.Errorf("archive: query channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var channels []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("archive: scan channel: %w", err)
		}
		channels = append(channels, id)
	}
	return channels, rows.Err()
}

// DeleteOlderThan removes entries created before the cutoff and returns
// the number of rows deleted.
func (a *Archive) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := a.db.ExecContext(ctx,
		`DELETE FROM transcripts WHERE created_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("archive: delete old transcripts: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	return a.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
