package vote

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// mockBoard is a testify mock of Board.
type mockBoard struct {
	mock.Mock
}

func (m *mockBoard) Probe(ctx context.Context, stableID string) (Probe, error) {
	args := m.Called(ctx, stableID)
	return args.Get(0).(Probe), args.Error(1)
}

func (m *mockBoard) Activate(ctx context.Context, stableID string, action Action) error {
	args := m.Called(ctx, stableID, action)
	return args.Error(0)
}

// fakeBoard keeps real per-item vote state and applies old-reddit arrow
// semantics: activating a direction always ends in that direction.
type fakeBoard struct {
	items       map[string]VoteState
	activations int
}

func newFakeBoard(states map[string]VoteState) *fakeBoard {
	return &fakeBoard{items: states}
}

func (f *fakeBoard) Probe(_ context.Context, id string) (Probe, error) {
	state, ok := f.items[id]
	if !ok {
		return Probe{}, nil
	}
	return Probe{
		Found:    true,
		Positive: Control{Present: true, Active: state == StatePositive},
		Negative: Control{Present: true, Active: state == StateNegative},
	}, nil
}

func (f *fakeBoard) Activate(_ context.Context, id string, action Action) error {
	f.activations++
	f.items[id] = action.Target()
	return nil
}

// staticSource returns a fixed snapshot.
type staticSource struct {
	items []RawItem
	err   error
	calls int
}

func (s *staticSource) Snapshot(context.Context) ([]RawItem, error) {
	s.calls++
	return s.items, s.err
}
