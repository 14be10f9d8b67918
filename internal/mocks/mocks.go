// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/redvote/internal/store"
)

// -- Run History Mock --

// MockRecorder mocks store.Recorder.
type MockRecorder struct {
	mock.Mock
	mu       sync.Mutex
	recorded []store.Run
}

var _ store.Recorder = (*MockRecorder)(nil)

func (m *MockRecorder) Record(ctx context.Context, run store.Run) error {
	m.mu.Lock()
	m.recorded = append(m.recorded, run)
	m.mu.Unlock()
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRecorder) Recent(ctx context.Context, limit int) ([]store.Run, error) {
	args := m.Called(ctx, limit)
	var runs []store.Run
	if v := args.Get(0); v != nil {
		runs = v.([]store.Run)
	}
	return runs, args.Error(1)
}

func (m *MockRecorder) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Recorded returns a copy of every run passed to Record.
func (m *MockRecorder) Recorded() []store.Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.Run(nil), m.recorded...)
}
