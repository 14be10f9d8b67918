// Package oldreddit drives old.reddit.com: login, subreddit navigation and
// the listing/vote-control reads and clicks the vote pipeline needs.
package oldreddit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/redvote/internal/config"
	"github.com/xkilldash9x/redvote/internal/vote"
)

// Page is the browser tab the site is driven through.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	WaitText(ctx context.Context, text string, timeout time.Duration) error
	Exists(ctx context.Context, selector string) (bool, error)
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	HTML(ctx context.Context, selector string) (string, error)
	URL(ctx context.Context) (string, error)
	Settle(ctx context.Context) error
}

// ErrLoginFailed is returned when the welcome text never appears after submitting credentials.
var ErrLoginFailed = errors.New("login failed")

// subredditLoadTimeout bounds the wait for the subreddit content after navigation.
const subredditLoadTimeout = 10 * time.Second

// Site is old.reddit.com seen through one Page. It implements vote.Snapshotter and vote.Board.
type Site struct {
	page   Page
	cfg    *config.Config
	logger *zap.Logger
	pacer  *rate.Limiter
}

var (
	_ vote.Snapshotter = (*Site)(nil)
	_ vote.Board       = (*Site)(nil)
)

// NewSite creates a Site. Clicks and keystrokes are paced by cfg.Pacing.
func NewSite(page Page, cfg *config.Config, logger *zap.Logger) *Site {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.Pacing.ActionsPerSecond > 0 {
		limit = rate.Limit(cfg.Pacing.ActionsPerSecond)
	}
	burst := cfg.Pacing.Burst
	if burst < 1 {
		burst = 1
	}
	return &Site{
		page:   page,
		cfg:    cfg,
		logger: logger.Named("oldreddit"),
		pacer:  rate.NewLimiter(limit, burst),
	}
}

func (s *Site) click(ctx context.Context, selector string) error {
	if err := s.pacer.Wait(ctx); err != nil {
		return err
	}
	return s.page.Click(ctx, selector)
}

func (s *Site) typeInto(ctx context.Context, selector, text string) error {
	if err := s.pacer.Wait(ctx); err != nil {
		return err
	}
	return s.page.Type(ctx, selector, text)
}

// Open loads the home page.
func (s *Site) Open(ctx context.Context) error {
	return s.page.Navigate(ctx, s.cfg.Target.BaseURL)
}

// DismissCookieBanner accepts the cookie policy if the banner shows up within
// the cookie timeout. A missing banner is not an error.
func (s *Site) DismissCookieBanner(ctx context.Context) (bool, error) {
	if err := s.page.WaitVisible(ctx, CookieBanner, s.cfg.Network.CookieTimeout); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		s.logger.Debug("No cookie banner shown.")
		return false, nil
	}
	if err := s.click(ctx, CookieAccept); err != nil {
		return false, fmt.Errorf("failed to accept cookie policy: %w", err)
	}
	s.logger.Info("Cookie policy accepted.")
	return true, nil
}

// LoggedIn reports whether the header shows a logout link.
func (s *Site) LoggedIn(ctx context.Context) (bool, error) {
	return s.page.Exists(ctx, LogoutLink)
}

// Login signs in with creds and waits for the personalised welcome text.
func (s *Site) Login(ctx context.Context, creds config.CredentialsConfig) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	steps := []struct {
		desc string
		run  func() error
	}{
		{"find login link", func() error { return s.page.WaitVisible(ctx, LoginLink, 0) }},
		{"open login form", func() error { return s.click(ctx, LoginLink) }},
		{"wait for login form", func() error { return s.page.WaitVisible(ctx, LoginForm, 0) }},
		{"find username field", func() error { return s.page.WaitVisible(ctx, UsernameField, 0) }},
		{"enter username", func() error { return s.typeInto(ctx, UsernameField, creds.Email) }},
		{"find password field", func() error { return s.page.WaitVisible(ctx, PasswordField, 0) }},
		{"enter password", func() error { return s.typeInto(ctx, PasswordField, creds.Password) }},
		{"wait for submit button", func() error { return s.page.WaitVisible(ctx, LoginSubmitReady, 0) }},
		{"let the form settle", func() error { return s.page.Settle(ctx) }},
		{"submit login", func() error { return s.click(ctx, LoginSubmit) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("login: %s: %w", step.desc, err)
		}
		s.logger.Debug("Login step done.", zap.String("step", step.desc))
	}

	if err := s.page.WaitText(ctx, WelcomeText(creds.Username), s.cfg.Network.NavigationTimeout); err != nil {
		return fmt.Errorf("%w: welcome text for %q not shown: %v", ErrLoginFailed, creds.Username, err)
	}
	s.logger.Info("Logged in.", zap.String("username", creds.Username))
	return nil
}

// PermalinkURL resolves a site-relative permalink against base.
func PermalinkURL(base, permalink string) string {
	if permalink == "" || strings.Contains(permalink, "://") {
		return permalink
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(permalink, "/")
}

// SubredditURL is the direct listing URL of the configured subreddit.
func (s *Site) SubredditURL() string {
	return strings.TrimRight(s.cfg.Target.BaseURL, "/") + "/r/" + s.cfg.Target.Subreddit + "/"
}

// OpenSubreddit reaches the configured subreddit by search or direct URL.
func (s *Site) OpenSubreddit(ctx context.Context) error {
	if s.cfg.Target.Navigation == config.NavigateDirect {
		if err := s.page.Navigate(ctx, s.SubredditURL()); err != nil {
			return err
		}
		return s.page.WaitVisible(ctx, Content, subredditLoadTimeout)
	}

	steps := []struct {
		desc string
		run  func() error
	}{
		{"find search bar", func() error { return s.page.WaitVisible(ctx, SearchInput, 0) }},
		{"type query", func() error { return s.typeInto(ctx, SearchInput, s.cfg.Target.Subreddit) }},
		{"find search button", func() error { return s.page.WaitVisible(ctx, SearchSubmit, 0) }},
		{"submit search", func() error { return s.click(ctx, SearchSubmit) }},
		{"wait for results", func() error { return s.page.Settle(ctx) }},
		{"find first subreddit result", func() error { return s.page.WaitVisible(ctx, FirstSubredditResult, 0) }},
		{"open subreddit", func() error { return s.click(ctx, FirstSubredditResult) }},
		{"wait for navigation", func() error { return s.page.Settle(ctx) }},
		{"wait for listing", func() error { return s.page.WaitVisible(ctx, Content, subredditLoadTimeout) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("open subreddit: %s: %w", step.desc, err)
		}
	}
	return nil
}

// VerifyLocation checks that the tab is on the configured subreddit. It
// returns the current URL and whether it matched.
func (s *Site) VerifyLocation(ctx context.Context) (string, bool, error) {
	current, err := s.page.URL(ctx)
	if err != nil {
		return "", false, err
	}
	want := "/r/" + strings.ToLower(s.cfg.Target.Subreddit) + "/"
	if base, err := url.Parse(s.cfg.Target.BaseURL); err == nil && base.Host != "" {
		want = strings.ToLower(base.Host) + want
	}

	ok := strings.Contains(strings.ToLower(current), want)
	if !ok {
		s.logger.Error("URL verification failed.", zap.String("expected_fragment", want), zap.String("url", current))
	} else {
		s.logger.Info("URL verified.", zap.String("url", current))
	}
	return current, ok, nil
}

// Logout signs out and waits for the login link to come back.
func (s *Site) Logout(ctx context.Context) error {
	if err := s.page.WaitVisible(ctx, LogoutLink, 0); err != nil {
		return fmt.Errorf("logout: find logout link: %w", err)
	}
	if err := s.click(ctx, LogoutLink); err != nil {
		return fmt.Errorf("logout: click: %w", err)
	}
	if err := s.page.WaitVisible(ctx, LoginLink, 0); err != nil {
		return fmt.Errorf("logout: login link did not reappear: %w", err)
	}
	s.logger.Info("Logged out.")
	return nil
}

func (s *Site) body(ctx context.Context) (string, error) {
	html, err := s.page.HTML(ctx, "body")
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}
	return html, nil
}

// Snapshot reads the listing items currently on the page.
func (s *Site) Snapshot(ctx context.Context) ([]vote.RawItem, error) {
	html, err := s.body(ctx)
	if err != nil {
		return nil, err
	}
	items, err := ParseListing(html)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Listing snapshot taken.", zap.Int("items", len(items)))
	return items, nil
}

// Probe reads the vote controls of one item.
func (s *Site) Probe(ctx context.Context, stableID string) (vote.Probe, error) {
	html, err := s.body(ctx)
	if err != nil {
		return vote.Probe{}, err
	}
	return ParseProbe(html, stableID, s.cfg.Artifacts.SnippetLength)
}

// Activate clicks the control for action on the item.
func (s *Site) Activate(ctx context.Context, stableID string, action vote.Action) error {
	selector := ArrowSelector(stableID, action)
	s.logger.Debug("Clicking vote control.", zap.String("stable_id", stableID), zap.Stringer("action", action))
	return s.click(ctx, selector)
}
