// File: internal/config/humanoid_config.go
// HumanoidConfig holds the tunable parameters for human-like interaction:
// cognitive pauses between steps, click hold times and typing rhythm.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// HumanoidConfig defines the timing model used by the humanoid package.
type HumanoidConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Cognitive pause between high-level steps.
	PauseMeanMs   float64 `mapstructure:"pause_mean_ms" yaml:"pause_mean_ms"`
	PauseStdDevMs float64 `mapstructure:"pause_stddev_ms" yaml:"pause_stddev_ms"`

	// Mouse button hold bounds for a click.
	ClickHoldMinMs int `mapstructure:"click_hold_min_ms" yaml:"click_hold_min_ms"`
	ClickHoldMaxMs int `mapstructure:"click_hold_max_ms" yaml:"click_hold_max_ms"`

	// Typing rhythm.
	KeyHoldMeanMs   float64 `mapstructure:"key_hold_mean_ms" yaml:"key_hold_mean_ms"`
	KeyHoldStdDevMs float64 `mapstructure:"key_hold_stddev_ms" yaml:"key_hold_stddev_ms"`
	KeyGapMeanMs    float64 `mapstructure:"key_gap_mean_ms" yaml:"key_gap_mean_ms"`
	KeyGapStdDevMs  float64 `mapstructure:"key_gap_stddev_ms" yaml:"key_gap_stddev_ms"`

	// ClickJitter is the fraction of the element box used to offset the click point.
	ClickJitter float64 `mapstructure:"click_jitter" yaml:"click_jitter"`

	// Seed fixes the random source; zero means time-seeded.
	Seed int64 `mapstructure:"seed" yaml:"seed"`
}

func setHumanoidDefaults(v *viper.Viper) {
	v.SetDefault("browser.humanoid.enabled", true)
	v.SetDefault("browser.humanoid.pause_mean_ms", 450.0)
	v.SetDefault("browser.humanoid.pause_stddev_ms", 150.0)
	v.SetDefault("browser.humanoid.click_hold_min_ms", 50)
	v.SetDefault("browser.humanoid.click_hold_max_ms", 140)
	v.SetDefault("browser.humanoid.key_hold_mean_ms", 65.0)
	v.SetDefault("browser.humanoid.key_hold_stddev_ms", 20.0)
	v.SetDefault("browser.humanoid.key_gap_mean_ms", 110.0)
	v.SetDefault("browser.humanoid.key_gap_stddev_ms", 45.0)
	v.SetDefault("browser.humanoid.click_jitter", 0.25)
}

// Validate checks the humanoid timing bounds.
func (h *HumanoidConfig) Validate() error {
	if !h.Enabled {
		return nil
	}
	if h.ClickHoldMinMs < 0 || h.ClickHoldMaxMs < h.ClickHoldMinMs {
		return fmt.Errorf("click_hold_min_ms must be >= 0 and <= click_hold_max_ms")
	}
	if h.PauseMeanMs < 0 || h.KeyHoldMeanMs < 0 || h.KeyGapMeanMs < 0 {
		return fmt.Errorf("mean timings must not be negative")
	}
	if h.ClickJitter < 0 || h.ClickJitter > 1 {
		return fmt.Errorf("click_jitter must be between 0.0 and 1.0")
	}
	return nil
}
