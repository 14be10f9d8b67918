// Package humanoid issues clicks and keystrokes with human-like timing:
// cursor travel to a jittered point inside the target, press-hold-release
// clicks, per-key typing rhythm and cognitive pauses between steps.
package humanoid

import (
	"math/rand"
	"sync"
	"time"

	"github.com/xkilldash9x/redvote/internal/config"
	"go.uber.org/zap"
)

// Humanoid holds cursor state and the random source for one browser tab.
type Humanoid struct {
	cfg    config.HumanoidConfig
	exec   Executor
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
	pos Vector2D
}

// New creates a Humanoid. A zero cfg.Seed seeds from the clock.
func New(cfg config.HumanoidConfig, exec Executor, logger *zap.Logger) *Humanoid {
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Humanoid{
		cfg:    cfg,
		exec:   exec,
		logger: logger.Named("humanoid"),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Position returns the last known cursor position.
func (h *Humanoid) Position() Vector2D {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pos
}
