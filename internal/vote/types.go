// internal/vote/types.go
package vote

import (
	"context"
	"strings"
)

// Flags are the presentation attributes that make an item ineligible.
type Flags struct {
	Pinned   bool `json:"pinned"`
	Promoted bool `json:"promoted"`
}

// RawItem is one rendered entry as read from a page snapshot, in document order.
// StableID is empty when the page did not expose one.
type RawItem struct {
	Title     string `json:"title"`
	StableID  string `json:"stable_id,omitempty"`
	Permalink string `json:"permalink,omitempty"`
	Flags     Flags  `json:"flags"`
}

// Eligible reports whether the item may be counted by the scanner.
func (r RawItem) Eligible() bool {
	if r.Flags.Pinned || r.Flags.Promoted {
		return false
	}
	return strings.TrimSpace(r.Title) != ""
}

// Candidate is an eligible item chosen by the scanner.
type Candidate struct {
	Title     string `json:"title"`
	StableID  string `json:"stable_id,omitempty"`
	Permalink string `json:"permalink,omitempty"`
	// Rank is the 1-based position among eligible items.
	Rank int `json:"rank"`
	// Index is the 0-based position in the raw snapshot.
	Index int `json:"index"`
}

// HasStableID reports whether the candidate can be addressed during reconciliation.
func (c Candidate) HasStableID() bool { return c.StableID != "" }

// Action is the desired end state for the chosen item.
type Action int

const (
	AssertPositive Action = iota + 1
	AssertNegative
)

func (a Action) String() string {
	switch a {
	case AssertPositive:
		return "ASSERT_POSITIVE"
	case AssertNegative:
		return "ASSERT_NEGATIVE"
	default:
		return "UNKNOWN"
	}
}

func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Target returns the vote state the action asks for.
func (a Action) Target() VoteState {
	if a == AssertPositive {
		return StatePositive
	}
	return StateNegative
}

// VoteState is the external resource's per-item toggle state.
type VoteState int

const (
	StateNone VoteState = iota
	StatePositive
	StateNegative
)

func (s VoteState) String() string {
	switch s {
	case StatePositive:
		return "POSITIVE"
	case StateNegative:
		return "NEGATIVE"
	default:
		return "NONE"
	}
}

func (s VoteState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Control is one of the two affordances attached to an item.
type Control struct {
	Present bool
	Active  bool
}

// Probe is a fresh read of one item and its controls.
type Probe struct {
	Found    bool
	Positive Control
	Negative Control
	// Snippet is a short excerpt of the item's markup, kept for diagnostics.
	Snippet string
}

// Snapshotter produces an ordered, fully materialised view of the page's items.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]RawItem, error)
}

// Board is the live resource the reconciler reads and mutates.
// Errors mean the collaborator failed; missing items or controls are
// reported through Probe, not as errors.
type Board interface {
	Probe(ctx context.Context, stableID string) (Probe, error)
	Activate(ctx context.Context, stableID string, action Action) error
}
