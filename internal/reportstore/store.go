// Package reportstore keeps run history in PostgreSQL.
package reportstore

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/specialistvlad/bundlegrid/internal/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS bundle_runs (
  run_id TEXT PRIMARY KEY,
  started_at TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ NOT NULL,
  total INTEGER NOT NULL,
  bundled INTEGER NOT NULL,
  refreshed INTEGER NOT NULL,
  failed INTEGER NOT NULL,
  delivery_failures INTEGER NOT NULL DEFAULT 0,
  report JSONB NOT NULL
)`

const insertRun = `
INSERT INTO bundle_runs (
  run_id, started_at, finished_at, total, bundled, refreshed, failed, delivery_failures, report
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (run_id) DO NOTHING`

// Store writes run reports.
type Store struct {
	db *sql.DB
}

// Open connects with the pgx driver and creates the table if needed.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open run history database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to run history database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bundle_runs table: %w", err)
	}
	return &Store{db: db}, nil
}

// Save inserts one row for the report. Saving the same run twice is a no-op.
func (s *Store) Save(ctx context.Context, r *report.RunReport) error {
	args, err := rowArgs(r)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, insertRun, args...); err != nil {
		return fmt.Errorf("failed to save run %s: %w", r.RunID, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func rowArgs(r *report.RunReport) ([]any, error) {
	var buf bytes.Buffer
	if err := report.WriteJSON(&buf, r); err != nil {
		return nil, err
	}
	return []any{
		r.RunID,
		r.StartedAt,
		r.FinishedAt,
		r.Total,
		len(r.Bundled),
		len(r.RefreshedNotBundled),
		len(r.Failed),
		len(r.DeliveryFailures),
		buf.String(),
	}, nil
}
