// Filename: internal/humanoid/executor.go
package humanoid

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
)

// Executor is the browser surface the humanoid drives. Tests substitute a
// recording fake; production uses CDPExecutor.
type Executor interface {
	// Sleep pauses execution, respecting context cancellation.
	Sleep(ctx context.Context, d time.Duration) error

	// DispatchMouseEvent sends one low-level mouse event.
	DispatchMouseEvent(ctx context.Context, data MouseEventData) error

	// SendKeys sends keys to the currently focused element.
	SendKeys(ctx context.Context, keys string) error

	// GetElementGeometry scrolls the first match of selector into view,
	// waits for it to be visible and returns its content box.
	GetElementGeometry(ctx context.Context, selector string) (*ElementGeometry, error)
}

// CDPExecutor implements Executor over a chromedp tab context.
type CDPExecutor struct{}

// NewCDPExecutor creates a new production executor.
func NewCDPExecutor() *CDPExecutor {
	return &CDPExecutor{}
}

func (e *CDPExecutor) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *CDPExecutor) DispatchMouseEvent(ctx context.Context, data MouseEventData) error {
	params := input.DispatchMouseEvent(input.MouseType(data.Type), data.X, data.Y).
		WithButton(input.MouseButton(data.Button)).
		WithButtons(data.Buttons)
	if data.ClickCount > 0 {
		params = params.WithClickCount(int64(data.ClickCount))
	}
	return chromedp.Run(ctx, params)
}

func (e *CDPExecutor) SendKeys(ctx context.Context, keys string) error {
	return chromedp.Run(ctx, chromedp.SendKeys("document.activeElement", keys, chromedp.ByJSPath))
}

func (e *CDPExecutor) GetElementGeometry(ctx context.Context, selector string) (*ElementGeometry, error) {
	var nodes []*cdp.Node
	if err := chromedp.Run(ctx,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Nodes(selector, &nodes, chromedp.ByQuery),
	); err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no nodes match selector '%s'", selector)
	}

	var box *dom.BoxModel
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		box, err = dom.GetBoxModel().WithNodeID(nodes[0].NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to get box model for '%s': %w", selector, err)
	}
	return &ElementGeometry{Vertices: box.Content, Width: box.Width, Height: box.Height}, nil
}
