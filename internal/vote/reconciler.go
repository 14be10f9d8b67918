// internal/vote/reconciler.go
package vote

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// OutcomeKind tags a reconciliation result.
type OutcomeKind int

const (
	AlreadySelected OutcomeKind = iota + 1
	Clicked
	NotFound
	ControlNotFound
)

func (k OutcomeKind) String() string {
	switch k {
	case AlreadySelected:
		return "ALREADY_SELECTED"
	case Clicked:
		return "CLICKED"
	case NotFound:
		return "NOT_FOUND"
	case ControlNotFound:
		return "CONTROL_NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

func (k OutcomeKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Outcome is the result of one Reconcile call. Which fields are meaningful
// depends on Kind:
//
//	AlreadySelected  Current
//	Clicked          Previous
//	ControlNotFound  PositiveFound, NegativeFound, Snippet
//
// Conflict is set whenever both controls were observed active.
type Outcome struct {
	Kind          OutcomeKind `json:"kind"`
	Current       VoteState   `json:"current"`
	Previous      VoteState   `json:"previous"`
	PositiveFound bool        `json:"positive_found"`
	NegativeFound bool        `json:"negative_found"`
	Conflict      bool        `json:"conflict,omitempty"`
	Snippet       string      `json:"snippet,omitempty"`
}

// Err maps terminal failure outcomes onto the package sentinels.
func (o Outcome) Err() error {
	switch o.Kind {
	case NotFound:
		return ErrTargetNotFound
	case ControlNotFound:
		return fmt.Errorf("%w: positive=%t negative=%t", ErrControlNotFound, o.PositiveFound, o.NegativeFound)
	default:
		return nil
	}
}

// Mutated reports whether the reconciler issued an activation.
func (o Outcome) Mutated() bool { return o.Kind == Clicked }

// Reconciler brings one item's external vote state in line with a desired action.
type Reconciler struct {
	board  Board
	logger *zap.Logger
}

// NewReconciler creates a reconciler over board.
func NewReconciler(board Board, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{board: board, logger: logger.Named("reconciler")}
}

// Reconcile reads the item's state fresh and activates at most one control.
// A non-nil error means the board itself failed; every domain result,
// including a vanished item, comes back as an Outcome.
func (r *Reconciler) Reconcile(ctx context.Context, stableID string, desired Action) (Outcome, error) {
	log := r.logger.With(zap.String("stable_id", stableID), zap.Stringer("desired", desired))

	if stableID == "" {
		log.Warn("Candidate has no stable identifier; cannot address it.")
		return Outcome{Kind: NotFound}, nil
	}

	probe, err := r.board.Probe(ctx, stableID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to probe item %s: %w", stableID, err)
	}
	if !probe.Found {
		log.Info("Item no longer present.")
		return Outcome{Kind: NotFound}, nil
	}
	if !probe.Positive.Present || !probe.Negative.Present {
		log.Warn("Vote controls missing.",
			zap.Bool("positive_found", probe.Positive.Present),
			zap.Bool("negative_found", probe.Negative.Present),
		)
		return Outcome{
			Kind:          ControlNotFound,
			PositiveFound: probe.Positive.Present,
			NegativeFound: probe.Negative.Present,
			Snippet:       probe.Snippet,
		}, nil
	}

	current, conflict := readState(probe)
	if conflict {
		// Both markers set is not a state the page should ever render.
		log.Warn("Both vote controls report active; treating as positive.", zap.String("snippet", probe.Snippet))
	}

	if current == desired.Target() {
		log.Debug("Desired state already selected.", zap.Stringer("current", current))
		return Outcome{Kind: AlreadySelected, Current: current, Conflict: conflict}, nil
	}

	if err := r.board.Activate(ctx, stableID, desired); err != nil {
		return Outcome{}, fmt.Errorf("failed to activate %s control on %s: %w", desired, stableID, err)
	}
	log.Info("Activated vote control.", zap.Stringer("previous", current))
	return Outcome{Kind: Clicked, Previous: current, Conflict: conflict}, nil
}

func readState(p Probe) (VoteState, bool) {
	switch {
	case p.Positive.Active && p.Negative.Active:
		return StatePositive, true
	case p.Positive.Active:
		return StatePositive, false
	case p.Negative.Active:
		return StateNegative, false
	default:
		return StateNone, false
	}
}
