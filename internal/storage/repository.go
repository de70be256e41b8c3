// Package storage persists the import journal: one row per ingestion
// attempt, kept for audit and troubleshooting. Transaction data itself is
// session-scoped and never stored here.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// JournalEntry is one recorded import outcome.
type JournalEntry struct {
	ID         int64
	SessionID  string
	SourceID   string
	SourceName string
	Rows       int
	Status     string // "imported", "skipped" or "failed"
	Error      string
	CreatedAt  time.Time
}

type JournalRepository struct {
	db *sql.DB
}

func NewJournalRepository(dbPath string) (*JournalRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &JournalRepository{db: db}, nil
}

// Record appends one import outcome and returns its row id.
func (r *JournalRepository) Record(ctx context.Context, entry JournalEntry) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO import_journal (session_id, source_id, source_name, rows, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID, entry.SourceID, entry.SourceName, entry.Rows,
		entry.Status, entry.Error, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert journal entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("journal entry id: %w", err)
	}
	return id, nil
}

// Recent returns the newest entries, most recent first.
func (r *JournalRepository) Recent(ctx context.Context, limit int) ([]JournalEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, source_id, source_name, rows, status, error, created_at
		 FROM import_journal ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.SourceID, &e.SourceName,
			&e.Rows, &e.Status, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return out, nil
}

// BySession returns every entry recorded for one session, oldest first.
func (r *JournalRepository) BySession(ctx context.Context, sessionID string) ([]JournalEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, source_id, source_name, rows, status, error, created_at
		 FROM import_journal WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query journal by session: %w", err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.SourceID, &e.SourceName,
			&e.Rows, &e.Status, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return out, nil
}

func (r *JournalRepository) Close() error {
	return r.db.Close()
}
