package humanoid

import (
	"context"
	"math"
	"time"
)

// MoveTo glides the cursor to target along an eased path with a slight
// sideways bow, dispatching intermediate mouseMoved events.
func (h *Humanoid) MoveTo(ctx context.Context, target Vector2D) error {
	start := h.Position()
	dist := start.Dist(target)
	steps := int(clamp(dist/25, 5, 40))

	// Unit normal to the travel direction for the bow.
	var normal Vector2D
	if dist > 0 {
		normal = Vector2D{X: -(target.Y - start.Y) / dist, Y: (target.X - start.X) / dist}
	}
	h.mu.Lock()
	bow := h.rng.NormFloat64() * math.Min(dist*0.05, 12)
	h.mu.Unlock()

	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		eased := t * t * (3 - 2*t)
		p := start.Lerp(target, eased)
		if i < steps {
			p = p.Add(normal.Mul(bow * math.Sin(math.Pi*t)))
		} else {
			p = target
		}

		if err := h.exec.DispatchMouseEvent(ctx, MouseEventData{Type: MouseMove, X: p.X, Y: p.Y, Button: ButtonNone}); err != nil {
			return err
		}
		h.mu.Lock()
		h.pos = p
		h.mu.Unlock()

		if err := h.exec.Sleep(ctx, h.uniformMs(6, 14)); err != nil {
			return err
		}
	}
	return nil
}

// targetPoint picks a click point near the centre of geo, offset by a
// normally distributed jitter bounded by the configured box fraction.
func (h *Humanoid) targetPoint(geo *ElementGeometry, center Vector2D) Vector2D {
	maxX := float64(geo.Width) * h.cfg.ClickJitter / 2
	maxY := float64(geo.Height) * h.cfg.ClickJitter / 2

	h.mu.Lock()
	dx := h.rng.NormFloat64() * maxX / 2
	dy := h.rng.NormFloat64() * maxY / 2
	h.mu.Unlock()

	return Vector2D{X: center.X + clamp(dx, -maxX, maxX), Y: center.Y + clamp(dy, -maxY, maxY)}
}

// terminalDelay is the short settle before pressing, longer for longer travel.
func (h *Humanoid) terminalDelay(distance float64) time.Duration {
	const a, b, w = 40.0, 60.0, 20.0
	mt := a + b*math.Log2(1+distance/w)
	return h.normalMs(mt, mt*0.1, 0)
}
