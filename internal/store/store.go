// Package store keeps a history of vote runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/redvote/internal/config"
)

// DefaultRecentLimit is used when Recent is called with a non-positive limit.
const DefaultRecentLimit = 20

// ErrUnknownDriver is returned by Open for an unsupported history driver.
var ErrUnknownDriver = errors.New("unknown history driver")

// Run is one row of run history.
type Run struct {
	ID             string    `json:"id"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Subreddit      string    `json:"subreddit"`
	TargetIndex    int       `json:"target_index"`
	DryRun         bool      `json:"dry_run"`
	CandidateID    string    `json:"candidate_id,omitempty"`
	CandidateTitle string    `json:"candidate_title,omitempty"`
	Permalink      string    `json:"permalink,omitempty"`
	Action         string    `json:"action,omitempty"`
	Keyword        string    `json:"keyword,omitempty"`
	Outcome        string    `json:"outcome,omitempty"`
	PriorState     string    `json:"prior_state,omitempty"`
	// CurrentState is set only when the state was read from the page.
	CurrentState   string    `json:"current_state,omitempty"`
	Conflict       bool      `json:"conflict,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// Recorder persists runs and lists the most recent ones, newest first.
type Recorder interface {
	Record(ctx context.Context, run Run) error
	Recent(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// Nop discards every run.
type Nop struct{}

func (Nop) Record(context.Context, Run) error { return nil }
func (Nop) Recent(context.Context, int) ([]Run, error) { return nil, nil }
func (Nop) Close() error { return nil }

// Open returns the Recorder selected by cfg.Driver.
func Open(ctx context.Context, cfg config.HistoryConfig, logger *zap.Logger) (Recorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Driver {
	case "", config.HistoryNone:
		return Nop{}, nil
	case config.HistorySQLite:
		return OpenSQLite(ctx, cfg.SQLitePath, logger)
	case config.HistoryPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres pool: %w", err)
		}
		s, err := NewPostgres(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return limit
}
