// Package stealth makes an automated tab look like an ordinary desktop browser.
package stealth

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/redvote/internal/config"
)

// evasionsScript runs before any page script on every new document.
const evasionsScript = `(() => {
  Object.defineProperty(Navigator.prototype, 'webdriver', { get: () => undefined });
  if (!window.chrome) { window.chrome = { runtime: {} }; }
  const langs = %s;
  Object.defineProperty(Navigator.prototype, 'languages', { get: () => langs.slice() });
  const query = window.navigator.permissions && window.navigator.permissions.query;
  if (query) {
    window.navigator.permissions.query = (p) =>
      p && p.name === 'notifications'
        ? Promise.resolve({ state: Notification.permission })
        : query.call(window.navigator.permissions, p);
  }
})();`

// Script returns the evasions script for the persona's languages.
func Script(p config.StealthConfig) string {
	quoted := make([]string, 0, len(p.Languages))
	for _, l := range p.Languages {
		quoted = append(quoted, fmt.Sprintf("%q", l))
	}
	return fmt.Sprintf(evasionsScript, "["+strings.Join(quoted, ",")+"]")
}

// AcceptLanguage builds an Accept-Language header with descending q values.
func AcceptLanguage(langs []string) string {
	parts := make([]string, 0, len(langs))
	for i, l := range langs {
		if i == 0 {
			parts = append(parts, l)
			continue
		}
		q := 1.0 - 0.1*float64(i)
		if q < 0.1 {
			q = 0.1
		}
		parts = append(parts, fmt.Sprintf("%s;q=%.1f", l, q))
	}
	return strings.Join(parts, ",")
}

// Apply returns the CDP actions that install the persona on a tab. Empty
// persona fields leave the browser's own value in place.
func Apply(p config.StealthConfig, logger *zap.Logger) chromedp.Tasks {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("Applying browser stealth persona",
		zap.String("userAgent", p.UserAgent),
		zap.String("platform", p.Platform),
	)

	var tasks chromedp.Tasks
	if p.UserAgent != "" {
		ua := emulation.SetUserAgentOverride(p.UserAgent).WithPlatform(p.Platform)
		if len(p.Languages) > 0 {
			ua = ua.WithAcceptLanguage(AcceptLanguage(p.Languages))
		}
		tasks = append(tasks, ua)
	}

	tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
		if _, err := page.AddScriptToEvaluateOnNewDocument(Script(p)).Do(ctx); err != nil {
			return fmt.Errorf("failed to inject evasions script: %w", err)
		}
		return nil
	}))

	if p.Timezone != "" {
		tasks = append(tasks, emulation.SetTimezoneOverride(p.Timezone))
	}
	if p.Locale != "" {
		tasks = append(tasks, emulation.SetLocaleOverride().WithLocale(p.Locale))
	}
	if len(p.Languages) > 0 {
		tasks = append(tasks, network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": AcceptLanguage(p.Languages),
		}))
	}
	return tasks
}
