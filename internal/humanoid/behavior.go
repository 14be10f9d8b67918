package humanoid

import (
	"context"
	"time"
)

// hesitateThreshold is the pause length above which the cursor idles instead of freezing.
const hesitateThreshold = 100 * time.Millisecond

// CognitivePause waits for a normally distributed duration, as a user
// reading the page before the next step would.
func (h *Humanoid) CognitivePause(ctx context.Context, meanMs, stdDevMs float64) error {
	if !h.cfg.Enabled {
		return nil
	}
	d := h.normalMs(meanMs, stdDevMs, 0)
	if d <= 0 {
		return nil
	}
	if d > hesitateThreshold {
		return h.Hesitate(ctx, d)
	}
	return h.exec.Sleep(ctx, d)
}

// Pause is a CognitivePause with the configured step timing.
func (h *Humanoid) Pause(ctx context.Context) error {
	return h.CognitivePause(ctx, h.cfg.PauseMeanMs, h.cfg.PauseStdDevMs)
}

// Hesitate spends d making small cursor drifts around the current position.
// Time is accounted from the requested sleeps, not the wall clock.
func (h *Humanoid) Hesitate(ctx context.Context, d time.Duration) error {
	start := h.Position()
	var elapsed time.Duration

	for elapsed < d {
		if err := ctx.Err(); err != nil {
			return err
		}

		h.mu.Lock()
		drift := Vector2D{X: (h.rng.Float64() - 0.5) * 5, Y: (h.rng.Float64() - 0.5) * 5}
		step := time.Duration(20+h.rng.Intn(80)) * time.Millisecond
		h.mu.Unlock()

		if step > d-elapsed {
			step = d - elapsed
		}

		target := start.Add(drift)
		if err := h.exec.DispatchMouseEvent(ctx, MouseEventData{Type: MouseMove, X: target.X, Y: target.Y, Button: ButtonNone}); err != nil {
			return err
		}
		h.mu.Lock()
		h.pos = target
		h.mu.Unlock()

		if err := h.exec.Sleep(ctx, step); err != nil {
			return err
		}
		elapsed += step
	}
	return nil
}
