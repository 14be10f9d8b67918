package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// DBPool abstracts pgxpool.Pool so the store can be tested with pgxmock.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

const (
	pgCreateRuns = `
        CREATE TABLE IF NOT EXISTS vote_runs (
            id TEXT PRIMARY KEY,
            started_at TIMESTAMPTZ NOT NULL,
            finished_at TIMESTAMPTZ NOT NULL,
            subreddit TEXT NOT NULL,
            target_index INTEGER NOT NULL,
            dry_run BOOLEAN NOT NULL DEFAULT FALSE,
            candidate_id TEXT NOT NULL DEFAULT '',
            candidate_title TEXT NOT NULL DEFAULT '',
            permalink TEXT NOT NULL DEFAULT '',
            action TEXT NOT NULL DEFAULT '',
            keyword TEXT NOT NULL DEFAULT '',
            outcome TEXT NOT NULL DEFAULT '',
            prior_state TEXT NOT NULL DEFAULT '',
            current_state TEXT NOT NULL DEFAULT '',
            conflict BOOLEAN NOT NULL DEFAULT FALSE,
            error TEXT NOT NULL DEFAULT ''
        );
    `
	pgInsertRun = `
        INSERT INTO vote_runs (id, started_at, finished_at, subreddit, target_index, dry_run,
            candidate_id, candidate_title, permalink, action, keyword, outcome,
            prior_state, current_state, conflict, error)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        ON CONFLICT (id) DO NOTHING;
    `
	pgSelectRecent = `
        SELECT id, started_at, finished_at, subreddit, target_index, dry_run,
            candidate_id, candidate_title, permalink, action, keyword, outcome,
            prior_state, current_state, conflict, error
        FROM vote_runs
        ORDER BY started_at DESC
        LIMIT $1;
    `
)

// Postgres records runs in a PostgreSQL table.
type Postgres struct {
	pool DBPool
	log  *zap.Logger
}

// NewPostgres verifies the connection and creates the runs table if needed.
func NewPostgres(ctx context.Context, pool DBPool, logger *zap.Logger) (*Postgres, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, pgCreateRuns); err != nil {
		return nil, fmt.Errorf("failed to ensure vote_runs table: %w", err)
	}
	return &Postgres{pool: pool, log: logger.Named("store.postgres")}, nil
}

func (s *Postgres) Record(ctx context.Context, r Run) error {
	_, err := s.pool.Exec(ctx, pgInsertRun,
		r.ID, r.StartedAt.UTC(), r.FinishedAt.UTC(), r.Subreddit, r.TargetIndex, r.DryRun,
		r.CandidateID, r.CandidateTitle, r.Permalink, r.Action, r.Keyword, r.Outcome,
		r.PriorState, r.CurrentState, r.Conflict, r.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", r.ID, err)
	}
	s.log.Debug("Run recorded.", zap.String("run_id", r.ID))
	return nil
}

func (s *Postgres) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.pool.Query(ctx, pgSelectRecent, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID, &r.StartedAt, &r.FinishedAt, &r.Subreddit, &r.TargetIndex, &r.DryRun,
			&r.CandidateID, &r.CandidateTitle, &r.Permalink, &r.Action, &r.Keyword, &r.Outcome,
			&r.PriorState, &r.CurrentState, &r.Conflict, &r.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}
