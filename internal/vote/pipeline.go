package vote

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Decision is what a pipeline run chose and, for Run, what happened.
type Decision struct {
	Candidate Candidate `json:"candidate"`
	Action    Action    `json:"action"`
	// Keyword is the keyword that matched, empty for AssertNegative.
	Keyword string `json:"keyword,omitempty"`
	// Outcome is nil for a plan-only run.
	Outcome *Outcome `json:"outcome,omitempty"`
}

// Pipeline wires scanner, classifier and reconciler in that order.
type Pipeline struct {
	Source     Snapshotter
	Board      Board
	Classifier *Classifier
	Logger     *zap.Logger
}

// Plan scans and classifies without touching the board.
func (p *Pipeline) Plan(ctx context.Context, n int) (*Decision, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: target index must be >= 1, got %d", ErrInvalidArgument, n)
	}
	if p.Source == nil {
		return nil, errors.New("pipeline has no snapshot source")
	}

	items, err := p.Source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot items: %w", err)
	}

	candidate, err := SelectNthEligible(items, n)
	if err != nil {
		return nil, err
	}

	classifier := p.Classifier
	if classifier == nil {
		classifier = NewClassifier(DefaultKeywords...)
	}
	keyword, _ := classifier.Match(candidate.Title)
	action := classifier.Classify(candidate.Title)

	p.logger().Info("Selected candidate.",
		zap.Int("rank", candidate.Rank),
		zap.Int("snapshot_size", len(items)),
		zap.String("title", candidate.Title),
		zap.String("stable_id", candidate.StableID),
		zap.Stringer("action", action),
	)

	return &Decision{Candidate: candidate, Action: action, Keyword: keyword}, nil
}

// Run plans and then reconciles the chosen item. The returned Decision is
// non-nil whenever a candidate was chosen, even if reconciliation failed.
func (p *Pipeline) Run(ctx context.Context, n int) (*Decision, error) {
	decision, err := p.Plan(ctx, n)
	if err != nil {
		return nil, err
	}
	if p.Board == nil {
		return decision, errors.New("pipeline has no board to reconcile against")
	}

	outcome, err := NewReconciler(p.Board, p.logger()).Reconcile(ctx, decision.Candidate.StableID, decision.Action)
	if err != nil {
		return decision, err
	}
	decision.Outcome = &outcome

	if oerr := outcome.Err(); oerr != nil {
		return decision, fmt.Errorf("reconcile %q: %w", decision.Candidate.StableID, oerr)
	}
	return decision, nil
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
