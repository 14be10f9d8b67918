package humanoid

import (
	"context"
	"fmt"
	"time"
)

// minKeyHoldMs is the shortest believable key dwell.
const minKeyHoldMs = 20.0

// Type focuses the element by clicking it, then sends text one key at a
// time with a sampled gap before and dwell after each key.
func (h *Humanoid) Type(ctx context.Context, selector, text string) error {
	if err := h.Click(ctx, selector); err != nil {
		return fmt.Errorf("humanoid: failed to focus '%s': %w", selector, err)
	}
	if err := h.CognitivePause(ctx, 200, 80); err != nil {
		return err
	}

	if !h.cfg.Enabled {
		return h.exec.SendKeys(ctx, text)
	}

	for _, r := range text {
		if err := h.exec.Sleep(ctx, h.keyGap()); err != nil {
			return err
		}
		if err := h.exec.SendKeys(ctx, string(r)); err != nil {
			return fmt.Errorf("humanoid: failed to send key: %w", err)
		}
		if err := h.exec.Sleep(ctx, h.keyHoldDuration()); err != nil {
			return err
		}
	}
	return nil
}

func (h *Humanoid) keyHoldDuration() time.Duration {
	return h.normalMs(h.cfg.KeyHoldMeanMs, h.cfg.KeyHoldStdDevMs, minKeyHoldMs)
}

func (h *Humanoid) keyGap() time.Duration {
	return h.normalMs(h.cfg.KeyGapMeanMs, h.cfg.KeyGapStdDevMs, 0)
}
