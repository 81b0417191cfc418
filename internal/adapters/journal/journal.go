// Package journal keeps a history of backup runs in a sqlite database.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/arumata/genback/internal/usecase"
)

// Store implements usecase.JournalPort.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal at dbPath and ensures the
// schema exists. Use ":memory:" in tests.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to configure journal (%s): %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record appends one run.
func (s *Store) Record(ctx context.Context, rec usecase.RunRecord) error {
	query := `
		INSERT INTO runs
		(started_at, finished_at, state, snapshot, copied, linked, skipped, failed, bytes_copied, removed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		formatTime(rec.StartedAt),
		formatTime(rec.FinishedAt),
		rec.State,
		rec.Snapshot,
		rec.Copied,
		rec.Linked,
		rec.Skipped,
		rec.Failed,
		rec.BytesCopied,
		rec.Removed,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]usecase.RunRecord, error) {
	query := `
		SELECT id, started_at, finished_at, state, snapshot, copied, linked, skipped, failed, bytes_copied, removed, error
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var records []usecase.RunRecord
	for rows.Next() {
		var rec usecase.RunRecord
		var startedAt, finishedAt string
		var snapshot, errText sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&startedAt,
			&finishedAt,
			&rec.State,
			&snapshot,
			&rec.Copied,
			&rec.Linked,
			&rec.Skipped,
			&rec.Failed,
			&rec.BytesCopied,
			&rec.Removed,
			&errText,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if rec.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, fmt.Errorf("failed to parse started_at of run %d: %w", rec.ID, err)
		}
		if rec.FinishedAt, err = parseTime(finishedAt); err != nil {
			return nil, fmt.Errorf("failed to parse finished_at of run %d: %w", rec.ID, err)
		}
		rec.Snapshot = snapshot.String
		rec.Error = errText.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return records, nil
}

// Fixed-width UTC text keeps ORDER BY started_at chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.Local(), nil
}
