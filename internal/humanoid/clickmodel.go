package humanoid

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Click moves to the element matched by selector and performs a
// press-hold-release with the left button.
func (h *Humanoid) Click(ctx context.Context, selector string) error {
	geo, err := h.exec.GetElementGeometry(ctx, selector)
	if err != nil {
		return fmt.Errorf("humanoid: failed to locate '%s': %w", selector, err)
	}
	center, ok := geo.Center()
	if !ok {
		return fmt.Errorf("humanoid: element '%s' has invalid geometry", selector)
	}

	target := center
	if h.cfg.Enabled {
		target = h.targetPoint(geo, center)
		travel := h.Position().Dist(target)
		if err := h.MoveTo(ctx, target); err != nil {
			return err
		}
		if err := h.exec.Sleep(ctx, h.terminalDelay(travel)); err != nil {
			return err
		}
	}

	h.logger.Debug("Clicking element.", zap.String("selector", selector), zap.Float64("x", target.X), zap.Float64("y", target.Y))

	press := MouseEventData{Type: MousePress, X: target.X, Y: target.Y, Button: ButtonLeft, ClickCount: 1, Buttons: 1}
	if err := h.exec.DispatchMouseEvent(ctx, press); err != nil {
		return err
	}

	if h.cfg.Enabled {
		if err := h.exec.Sleep(ctx, h.uniformMs(h.cfg.ClickHoldMinMs, h.cfg.ClickHoldMaxMs)); err != nil {
			return err
		}
	}

	release := MouseEventData{Type: MouseRelease, X: target.X, Y: target.Y, Button: ButtonLeft, ClickCount: 1, Buttons: 0}
	if err := h.exec.DispatchMouseEvent(ctx, release); err != nil {
		return err
	}

	h.mu.Lock()
	h.pos = target
	h.mu.Unlock()
	return nil
}
