package notify

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/deploywatch/deploywatch/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS error_history (
	fingerprint   TEXT PRIMARY KEY,
	category      TEXT NOT NULL,
	first_seen    TIMESTAMP NOT NULL,
	last_seen     TIMESTAMP NOT NULL,
	last_notified TIMESTAMP,
	seen_count    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_error_history_last_notified
	ON error_history(last_notified);
`

// SQLiteStore is the shipped HistoryStore, backed by a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the history database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// WAL mode for concurrent readers while a run writes
	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Lookup returns the history entry for a fingerprint, or nil when unseen.
func (s *SQLiteStore) Lookup(ctx context.Context, fingerprint string) (*HistoryEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, category, first_seen, last_seen, last_notified, seen_count
		FROM error_history WHERE fingerprint = ?`, fingerprint)

	var entry HistoryEntry
	var category string
	var lastNotified sql.NullTime
	err := row.Scan(&entry.Fingerprint, &category, &entry.FirstSeen, &entry.LastSeen, &lastNotified, &entry.SeenCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up fingerprint: %w", err)
	}
	entry.Category = types.Category(category)
	if lastNotified.Valid {
		entry.LastNotified = lastNotified.Time
	}
	return &entry, nil
}

// RecordSeen upserts the sighting of a signature. The stored category
// follows the latest sighting so severity comparisons track the current
// classification.
func (s *SQLiteStore) RecordSeen(ctx context.Context, sig *types.ErrorSignature, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO error_history (fingerprint, category, first_seen, last_seen, seen_count)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(fingerprint) DO UPDATE SET
			category = excluded.category,
			last_seen = excluded.last_seen,
			seen_count = seen_count + 1`,
		sig.Fingerprint, string(sig.Category), at, at)
	if err != nil {
		return fmt.Errorf("failed to record sighting: %w", err)
	}
	return nil
}

// RecordNotified advances the last-notified time for a fingerprint.
func (s *SQLiteStore) RecordNotified(ctx context.Context, fingerprint string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE error_history SET last_notified = ? WHERE fingerprint = ?`, at, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check notification update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("unknown fingerprint: %s", fingerprint)
	}
	return nil
}

// CountNotifiedSince counts notifications sent at or after the cutoff.
func (s *SQLiteStore) CountNotifiedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM error_history WHERE last_notified IS NOT NULL AND last_notified >= ?`,
		since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return n, nil
}

// Entries returns history entries ordered by most recently seen, capped at
// limit (0 means all). Used by the history command.
func (s *SQLiteStore) Entries(ctx context.Context, limit int) ([]HistoryEntry, error) {
	q := `
		SELECT fingerprint, category, first_seen, last_seen, last_notified, seen_count
		FROM error_history ORDER BY last_seen DESC`
	args := []interface{}{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		var category string
		var lastNotified sql.NullTime
		if err := rows.Scan(&entry.Fingerprint, &category, &entry.FirstSeen, &entry.LastSeen, &lastNotified, &entry.SeenCount); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entry.Category = types.Category(category)
		if lastNotified.Valid {
			entry.LastNotified = lastNotified.Time
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return entries, nil
}
