// internal/humanoid/helpers.go
package humanoid

import (
	"time"
)

// normalMs samples a normal distribution in milliseconds, floored at minMs.
func (h *Humanoid) normalMs(mean, stdDev, minMs float64) time.Duration {
	h.mu.Lock()
	v := h.rng.NormFloat64()*stdDev + mean
	h.mu.Unlock()
	if v < minMs {
		v = minMs
	}
	return time.Duration(v * float64(time.Millisecond))
}

// uniformMs samples uniformly in [minMs, maxMs].
func (h *Humanoid) uniformMs(minMs, maxMs int) time.Duration {
	if maxMs <= minMs {
		return time.Duration(minMs) * time.Millisecond
	}
	h.mu.Lock()
	v := minMs + h.rng.Intn(maxMs-minMs+1)
	h.mu.Unlock()
	return time.Duration(v) * time.Millisecond
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
