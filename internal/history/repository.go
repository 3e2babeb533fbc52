// Package history provides access to the runs table: an append-only
// record of completed automation runs. Orchestration state is never
// read back from here; the table exists for the operator, not the
// engine.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/romdock/internal/automation"
)

// Repository defines the interface for run history operations.
type Repository interface {
	SaveRun(ctx context.Context, rec automation.RunRecord) error
	List(ctx context.Context, limit int) ([]automation.RunRecord, error)
}

// SQLiteRepository stores run records in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new run history repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveRun inserts a completed run. The ID is generated if empty.
func (r *SQLiteRepository) SaveRun(ctx context.Context, rec automation.RunRecord) error {
	if rec.ID == "" {
		rec.ID = "run-" + uuid.NewString()[:8]
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, status, duration_ms, message)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.StartedAt.UTC().Format(time.RFC3339),
		rec.FinishedAt.UTC().Format(time.RFC3339),
		string(rec.Status),
		rec.Duration.Milliseconds(),
		rec.Message,
	)
	if err != nil {
		return fmt.Errorf("inserting run record: %w", err)
	}

	return nil
}

// List returns the most recent runs, newest first.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]automation.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, status, duration_ms, message
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var recs []automation.RunRecord
	for rows.Next() {
		var rec automation.RunRecord
		var startedAt, finishedAt, status string
		var durationMS int64

		if err := rows.Scan(&rec.ID, &startedAt, &finishedAt, &status, &durationMS, &rec.Message); err != nil {
			return nil, fmt.Errorf("scanning run record: %w", err)
		}

		if rec.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
			return nil, fmt.Errorf("parsing run start time %q: %w", startedAt, err)
		}
		if rec.FinishedAt, err = time.Parse(time.RFC3339, finishedAt); err != nil {
			return nil, fmt.Errorf("parsing run finish time %q: %w", finishedAt, err)
		}
		rec.Status = automation.Status(status)
		rec.Duration = time.Duration(durationMS) * time.Millisecond

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	if recs == nil {
		recs = []automation.RunRecord{}
	}
	return recs, nil
}
