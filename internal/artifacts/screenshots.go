// Package artifacts writes step screenshots for post-mortem inspection.
package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/redvote/internal/config"
)

// Capturer produces a PNG of the current page.
type Capturer interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9]+`)

// Sanitize turns a step label into a file name fragment.
func Sanitize(label string) string {
	s := unsafeChars.ReplaceAllString(strings.ToLower(label), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "step"
	}
	return s
}

// Screenshots numbers and stores step screenshots. The zero value is unusable;
// use NewScreenshots.
type Screenshots struct {
	cfg    config.ArtifactsConfig
	logger *zap.Logger

	mu      sync.Mutex
	seq     int
	dirOnce sync.Once
	dirErr  error
}

// NewScreenshots creates a recorder writing under cfg.ScreenshotDir.
func NewScreenshots(cfg config.ArtifactsConfig, logger *zap.Logger) *Screenshots {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Screenshots{cfg: cfg, logger: logger.Named("artifacts")}
}

// Capture stores a screenshot for label and returns its path. It never
// fails the caller: errors are logged and an empty path is returned.
func (s *Screenshots) Capture(ctx context.Context, c Capturer, label string) string {
	if !s.cfg.Enabled || c == nil {
		return ""
	}

	s.dirOnce.Do(func() {
		s.dirErr = os.MkdirAll(s.cfg.ScreenshotDir, 0o755)
	})
	if s.dirErr != nil {
		s.logger.Warn("Screenshot directory unavailable.", zap.String("dir", s.cfg.ScreenshotDir), zap.Error(s.dirErr))
		return ""
	}

	png, err := c.Screenshot(ctx)
	if err != nil {
		s.logger.Warn("Failed to capture screenshot.", zap.String("step", label), zap.Error(err))
		return ""
	}

	s.mu.Lock()
	s.seq++
	name := fmt.Sprintf("%02d_%s.png", s.seq, Sanitize(label))
	s.mu.Unlock()

	path := filepath.Join(s.cfg.ScreenshotDir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		s.logger.Warn("Failed to write screenshot.", zap.String("path", path), zap.Error(err))
		return ""
	}
	s.logger.Debug("Screenshot saved.", zap.String("path", path))
	return path
}
