package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	sqliteCreateRuns = `
        CREATE TABLE IF NOT EXISTS vote_runs (
            id TEXT PRIMARY KEY,
            started_at TEXT NOT NULL,
            finished_at TEXT NOT NULL,
            subreddit TEXT NOT NULL,
            target_index INTEGER NOT NULL,
            dry_run INTEGER NOT NULL DEFAULT 0,
            candidate_id TEXT NOT NULL DEFAULT '',
            candidate_title TEXT NOT NULL DEFAULT '',
            permalink TEXT NOT NULL DEFAULT '',
            action TEXT NOT NULL DEFAULT '',
            keyword TEXT NOT NULL DEFAULT '',
            outcome TEXT NOT NULL DEFAULT '',
            prior_state TEXT NOT NULL DEFAULT '',
            current_state TEXT NOT NULL DEFAULT '',
            conflict INTEGER NOT NULL DEFAULT 0,
            error TEXT NOT NULL DEFAULT ''
        );
    `
	sqliteInsertRun = `
        INSERT OR IGNORE INTO vote_runs (id, started_at, finished_at, subreddit, target_index, dry_run,
            candidate_id, candidate_title, permalink, action, keyword, outcome,
            prior_state, current_state, conflict, error)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
    `
	sqliteSelectRecent = `
        SELECT id, started_at, finished_at, subreddit, target_index, dry_run,
            candidate_id, candidate_title, permalink, action, keyword, outcome,
            prior_state, current_state, conflict, error
        FROM vote_runs
        ORDER BY started_at DESC
        LIMIT ?;
    `
)

// timestamps are stored as fixed-width UTC text so lexical order is chronological.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite records runs in a local SQLite file.
type SQLite struct {
	db  *sql.DB
	log *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:" is accepted.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLite, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Every connection to ":memory:" would be a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteCreateRuns); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure vote_runs table: %w", err)
	}
	return &SQLite{db: db, log: logger.Named("store.sqlite")}, nil
}

func (s *SQLite) Record(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, sqliteInsertRun,
		r.ID, r.StartedAt.UTC().Format(sqliteTimeLayout), r.FinishedAt.UTC().Format(sqliteTimeLayout),
		r.Subreddit, r.TargetIndex, r.DryRun,
		r.CandidateID, r.CandidateTitle, r.Permalink, r.Action, r.Keyword, r.Outcome,
		r.PriorState, r.CurrentState, r.Conflict, r.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", r.ID, err)
	}
	s.log.Debug("Run recorded.", zap.String("run_id", r.ID))
	return nil
}

func (s *SQLite) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectRecent, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
		)
		if err := rows.Scan(
			&r.ID, &started, &finished, &r.Subreddit, &r.TargetIndex, &r.DryRun,
			&r.CandidateID, &r.CandidateTitle, &r.Permalink, &r.Action, &r.Keyword, &r.Outcome,
			&r.PriorState, &r.CurrentState, &r.Conflict, &r.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(sqliteTimeLayout, started); err != nil {
			return nil, fmt.Errorf("bad started_at for run %s: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(sqliteTimeLayout, finished); err != nil {
			return nil, fmt.Errorf("bad finished_at for run %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
