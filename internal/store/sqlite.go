// Package store caches the metadata batch of the most recent scan in a
// local SQLite database, so report-only commands can reuse a fresh fetch
// instead of paying the API cost again.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"mailreaper/internal/model"

	_ "modernc.org/sqlite"
)

// Store holds one scan snapshot: the fetched message refs plus the time the
// scan ran. Replaced wholesale on every refetch.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id                    TEXT PRIMARY KEY,
	subject               TEXT NOT NULL DEFAULT '',
	from_header           TEXT NOT NULL DEFAULT '',
	date_header           TEXT NOT NULL DEFAULT '',
	list_unsubscribe      TEXT NOT NULL DEFAULT '',
	list_unsubscribe_post TEXT NOT NULL DEFAULT '',
	message_id            TEXT NOT NULL DEFAULT '',
	precedence            TEXT NOT NULL DEFAULT '',
	list_id               TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// columnHeaders maps table columns to the header names they cache, in the
// column order used by ReplaceScan and LoadScan.
var columnHeaders = []string{
	"Subject", "From", "Date",
	"List-Unsubscribe", "List-Unsubscribe-Post",
	"Message-ID", "Precedence", "List-Id",
}

// ReplaceScan swaps the cached snapshot for msgs and records now as the
// scan time, in one transaction.
func (s *Store) ReplaceScan(ctx context.Context, msgs []model.MessageRef, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages"); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (id, subject, from_header, date_header,
			list_unsubscribe, list_unsubscribe_post, message_id, precedence, list_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range msgs {
		args := make([]any, 0, 9)
		args = append(args, m.ID)
		for _, name := range columnHeaders {
			args = append(args, headerValue(m, name))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES ('last_scan', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, strconv.FormatInt(now.Unix(), 10))
	if err != nil {
		return err
	}
	return tx.Commit()
}

// LoadScan returns the cached batch and the time it was fetched. An empty
// cache returns a zero time and no messages, not an error.
func (s *Store) LoadScan(ctx context.Context) ([]model.MessageRef, time.Time, error) {
	var scannedAt time.Time
	var val string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = 'last_scan'").Scan(&val)
	switch {
	case err == sql.ErrNoRows:
		// no snapshot yet
	case err != nil:
		return nil, time.Time{}, err
	default:
		if unix, err := strconv.ParseInt(val, 10, 64); err == nil {
			scannedAt = time.Unix(unix, 0)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject, from_header, date_header,
			list_unsubscribe, list_unsubscribe_post, message_id, precedence, list_id
		FROM messages`)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer rows.Close()

	var msgs []model.MessageRef
	for rows.Next() {
		var m model.MessageRef
		vals := make([]string, len(columnHeaders))
		dest := make([]any, 0, 9)
		dest = append(dest, &m.ID)
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, time.Time{}, err
		}
		for i, v := range vals {
			if v != "" {
				m.Headers = append(m.Headers, model.Header{Name: columnHeaders[i], Value: v})
			}
		}
		msgs = append(msgs, m)
	}
	return msgs, scannedAt, rows.Err()
}

// Count returns the number of cached messages.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages").Scan(&count)
	return count, err
}

func headerValue(m model.MessageRef, name string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
