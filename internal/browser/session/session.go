// internal/browser/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/redvote/internal/browser/stealth"
	"github.com/xkilldash9x/redvote/internal/config"
	"github.com/xkilldash9x/redvote/internal/humanoid"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("browser session is closed")

// Session is one chromedp tab.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	cfg    *config.Config

	humanoid *humanoid.Humanoid
	onClose  func()

	mu       sync.Mutex
	isClosed bool
}

// NewSession wraps a chromedp tab context. cancel closes the tab.
func NewSession(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *zap.Logger, onClose func()) *Session {
	id := uuid.New().String()
	log := logger.With(zap.String("session_id", id))

	s := &Session{
		id:      id,
		ctx:     ctx,
		cancel:  cancel,
		logger:  log,
		cfg:     cfg,
		onClose: onClose,
	}
	if cfg.Browser.Humanoid.Enabled {
		s.humanoid = humanoid.New(cfg.Browser.Humanoid, humanoid.NewCDPExecutor(), log)
	}
	return s
}

// Initialize connects the tab and applies per-session network settings.
func (s *Session) Initialize(ctx context.Context) error {
	opCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	if err := chromedp.Run(opCtx); err != nil {
		return fmt.Errorf("failed to initialize browser tab: %w", err)
	}

	persona := s.cfg.Browser.Stealth
	if persona.Enabled {
		if err := chromedp.Run(opCtx, stealth.Apply(persona, s.logger)); err != nil {
			return fmt.Errorf("failed to apply stealth persona: %w", err)
		}
	}

	if len(s.cfg.Network.Headers) > 0 {
		headers := make(network.Headers, len(s.cfg.Network.Headers)+1)
		// Extra headers replace the whole set, so keep the persona's language.
		if persona.Enabled && len(persona.Languages) > 0 {
			headers["Accept-Language"] = stealth.AcceptLanguage(persona.Languages)
		}
		for k, v := range s.cfg.Network.Headers {
			headers[k] = v
		}
		if err := chromedp.Run(opCtx, network.Enable(), network.SetExtraHTTPHeaders(headers)); err != nil {
			return fmt.Errorf("failed to apply extra headers: %w", err)
		}
	}
	return nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// run executes actions on the tab, bounded by ctx and timeout.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if s.closed() {
		return ErrClosed
	}
	opCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		opCtx, cancelTimeout = context.WithTimeout(opCtx, timeout)
		defer cancelTimeout()
	}
	return chromedp.Run(opCtx, actions...)
}

// withTab runs fn with a tab-bound context for the humanoid.
func (s *Session) withTab(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if s.closed() {
		return ErrClosed
	}
	opCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	opCtx, cancelTimeout := context.WithTimeout(opCtx, timeout)
	defer cancelTimeout()
	return fn(opCtx)
}

// Navigate loads url and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))
	err := s.run(ctx, s.cfg.Network.NavigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// WaitVisible waits until selector matches a visible element.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.cfg.Network.ElementTimeout
	}
	if err := s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("element '%s' not visible: %w", selector, err)
	}
	return nil
}

// WaitText waits until the page's rendered text contains text.
func (s *Session) WaitText(ctx context.Context, text string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.cfg.Network.ElementTimeout
	}
	var found bool
	err := s.run(ctx, 0, chromedp.PollFunction(
		`(needle) => !!document.body && document.body.innerText.includes(needle)`,
		&found,
		chromedp.WithPollingArgs(text),
		chromedp.WithPollingTimeout(timeout),
	))
	if err != nil {
		return fmt.Errorf("text %q did not appear: %w", text, err)
	}
	return nil
}

// Exists reports whether selector currently matches any element, without waiting.
func (s *Session) Exists(ctx context.Context, selector string) (bool, error) {
	quoted, err := json.MarshalToString(selector)
	if err != nil {
		return false, err
	}
	var found bool
	expr := fmt.Sprintf("document.querySelector(%s) !== null", quoted)
	if err := s.run(ctx, s.cfg.Network.ElementTimeout, chromedp.Evaluate(expr, &found)); err != nil {
		return false, fmt.Errorf("failed to query '%s': %w", selector, err)
	}
	return found, nil
}

// Click clicks the first element matching selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	var err error
	if s.humanoid != nil {
		err = s.withTab(ctx, s.cfg.Network.ElementTimeout, func(tabCtx context.Context) error {
			return s.humanoid.Click(tabCtx, selector)
		})
	} else {
		err = s.run(ctx, s.cfg.Network.ElementTimeout,
			chromedp.ScrollIntoView(selector, chromedp.ByQuery),
			chromedp.WaitVisible(selector, chromedp.ByQuery),
			chromedp.Click(selector, chromedp.ByQuery),
		)
	}
	if err != nil {
		return fmt.Errorf("failed to click '%s': %w", selector, err)
	}
	return nil
}

// Type focuses selector and types text into it.
func (s *Session) Type(ctx context.Context, selector, text string) error {
	// Typing time grows with the text; give each key its share on top of the element timeout.
	timeout := s.cfg.Network.ElementTimeout + time.Duration(len(text))*500*time.Millisecond

	var err error
	if s.humanoid != nil {
		err = s.withTab(ctx, timeout, func(tabCtx context.Context) error {
			return s.humanoid.Type(tabCtx, selector, text)
		})
	} else {
		err = s.run(ctx, timeout,
			chromedp.ScrollIntoView(selector, chromedp.ByQuery),
			chromedp.WaitVisible(selector, chromedp.ByQuery),
			chromedp.Click(selector, chromedp.ByQuery),
			chromedp.SendKeys(selector, text, chromedp.ByQuery),
		)
	}
	if err != nil {
		return fmt.Errorf("failed to type into '%s': %w", selector, err)
	}
	return nil
}

// HTML returns the outer HTML of the first element matching selector.
func (s *Session) HTML(ctx context.Context, selector string) (string, error) {
	var html string
	if err := s.run(ctx, s.cfg.Network.ElementTimeout, chromedp.OuterHTML(selector, &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read HTML of '%s': %w", selector, err)
	}
	return html, nil
}

// URL returns the current location of the tab.
func (s *Session) URL(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, s.cfg.Network.ElementTimeout, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

// Screenshot captures the current viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, s.cfg.Network.ElementTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// Settle waits for the configured post-load period, idling the cursor when
// human-like interaction is enabled.
func (s *Session) Settle(ctx context.Context) error {
	wait := s.cfg.Network.PostLoadWait
	if wait <= 0 {
		return nil
	}
	if s.humanoid != nil {
		return s.withTab(ctx, wait+time.Second, func(tabCtx context.Context) error {
			return s.humanoid.Hesitate(tabCtx, wait)
		})
	}
	return s.run(ctx, 0, chromedp.Sleep(wait))
}

// Pause inserts a human-like think time between steps. No-op without humanoid.
func (s *Session) Pause(ctx context.Context) error {
	if s.humanoid == nil {
		return nil
	}
	return s.withTab(ctx, s.cfg.Network.ElementTimeout, s.humanoid.Pause)
}

func (s *Session) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isClosed
}

// Close closes the tab. It is safe to call more than once.
func (s *Session) Close(_ context.Context) error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")
	if s.cancel != nil {
		s.cancel()
	}
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}
