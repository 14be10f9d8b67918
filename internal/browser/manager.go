// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/redvote/internal/browser/session"
	"github.com/xkilldash9x/redvote/internal/config"
)

const shutdownGracePeriod = 15 * time.Second

// Manager owns the Chromium process and the tabs opened in it.
type Manager struct {
	logger *zap.Logger
	cfg    *config.Config

	parent      context.Context
	allocCtx    context.Context
	allocCancel context.CancelFunc
	initOnce    sync.Once

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// NewManager creates a browser manager. Chromium is launched with the first session.
func NewManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) *Manager {
	return &Manager{
		logger:   logger.Named("browser_manager"),
		cfg:      cfg,
		parent:   ctx,
		sessions: make(map[string]*session.Session),
	}
}

// DefaultAllocatorOptions translates the browser config into chromedp exec options.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	// The chromedp defaults are headless; a visible window has to be asked for.
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if cfg.Incognito {
		opts = append(opts, chromedp.Flag("incognito", true))
	}
	if cfg.StartMaximized {
		opts = append(opts, chromedp.Flag("start-maximized", true))
	}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	for _, arg := range cfg.Args {
		arg = strings.TrimLeft(arg, "-")
		if arg == "" {
			continue
		}
		key, value, hasValue := strings.Cut(arg, "=")
		if hasValue {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(key, true))
		}
	}
	return opts
}

func (m *Manager) initialize() {
	m.initOnce.Do(func() {
		m.logger.Info("Launching browser.", zap.Bool("headless", m.cfg.Browser.Headless))
		m.allocCtx, m.allocCancel = chromedp.NewExecAllocator(m.parent, DefaultAllocatorOptions(m.cfg.Browser)...)
	})
}

// NewSession opens a new tab and connects to it.
func (m *Manager) NewSession(ctx context.Context) (*session.Session, error) {
	m.initialize()

	tabCtx, tabCancel := chromedp.NewContext(m.allocCtx, chromedp.WithLogf(m.logger.Sugar().Debugf))

	var s *session.Session
	s = session.NewSession(tabCtx, tabCancel, m.cfg, m.logger, func() {
		m.mu.Lock()
		delete(m.sessions, s.ID())
		m.mu.Unlock()
	})

	if err := s.Initialize(ctx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	m.logger.Debug("Browser session created.", zap.String("session_id", s.ID()))
	return s, nil
}

// Shutdown closes every open tab, then the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	open := make([]*session.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.mu.Unlock()

	closeCtx, cancel := context.WithTimeout(session.Detach(ctx), shutdownGracePeriod)
	defer cancel()

	g, gctx := errgroup.WithContext(closeCtx)
	for _, s := range open {
		g.Go(func() error { return s.Close(gctx) })
	}
	err := g.Wait()

	if m.allocCancel != nil {
		m.allocCancel()
	}
	m.logger.Info("Browser shut down.", zap.Int("sessions_closed", len(open)))
	return err
}

// SessionCount returns the number of open tabs.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
