// File: internal/mocks/page.go
package mocks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrNotVisible is returned by FakePage when a selector matches nothing.
var ErrNotVisible = errors.New("element not visible")

// TypeCall records one Type invocation.
type TypeCall struct {
	Selector string
	Text     string
}

// FakePage is an in-memory browser tab. Selectors are evaluated with
// goquery against the current body, and clicks on old-reddit vote arrows
// flip their upmod/downmod classes the way the live site does.
type FakePage struct {
	mu  sync.Mutex
	doc *goquery.Document
	url string

	// Routes maps a URL to the HTML served when it is navigated to.
	Routes map[string]string
	// OnClick runs after a successful click on the exact selector.
	OnClick map[string]func(p *FakePage)
	// Fail forces an error for "<op> <arg>" keys, e.g. "click #search" or "html body".
	Fail map[string]error

	Navigations []string
	Clicks      []string
	Typed       []TypeCall
	Settles     int
	Screenshots int
}

// NewFakePage creates a page showing html at url.
func NewFakePage(url, html string) *FakePage {
	p := &FakePage{
		Routes:  map[string]string{},
		OnClick: map[string]func(*FakePage){},
		Fail:    map[string]error{},
	}
	p.SetURL(url)
	p.SetBody(html)
	return p
}

// SetBody replaces the document.
func (p *FakePage) SetBody(html string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(fmt.Sprintf("fake page: bad html: %v", err))
	}
	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()
}

// SetURL changes the reported location.
func (p *FakePage) SetURL(url string) {
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
}

func (p *FakePage) failure(op, arg string) error {
	if err, ok := p.Fail[op+" "+arg]; ok {
		return err
	}
	return nil
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	if err := p.failure("navigate", url); err != nil {
		p.mu.Unlock()
		return err
	}
	p.Navigations = append(p.Navigations, url)
	body, ok := p.Routes[url]
	p.url = url
	p.mu.Unlock()

	if ok {
		p.SetBody(body)
	}
	return nil
}

func (p *FakePage) WaitVisible(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure("wait", selector); err != nil {
		return err
	}
	if p.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("%w: %s", ErrNotVisible, selector)
	}
	return nil
}

func (p *FakePage) WaitText(ctx context.Context, text string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !strings.Contains(p.doc.Text(), text) {
		return fmt.Errorf("%w: text %q", ErrNotVisible, text)
	}
	return nil
}

func (p *FakePage) Exists(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Find(selector).Length() > 0, nil
}

func (p *FakePage) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	if err := p.failure("click", selector); err != nil {
		p.mu.Unlock()
		return err
	}
	target := p.doc.Find(selector).First()
	if target.Length() == 0 {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotVisible, selector)
	}
	p.Clicks = append(p.Clicks, selector)
	toggleArrow(target)
	hook := p.OnClick[selector]
	p.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	return nil
}

// toggleArrow applies old-reddit vote semantics to a clicked arrow: an
// inactive arrow becomes active and clears the opposite one; an active
// arrow is cleared.
func toggleArrow(arrow *goquery.Selection) {
	class := arrow.AttrOr("class", "")
	if !strings.Contains(class, "arrow") {
		return
	}
	thing := arrow.Closest("div.thing")
	up := strings.Contains(class, "up")
	wasActive := arrow.HasClass("upmod") || arrow.HasClass("downmod")

	thing.Find(".arrow").Each(func(_ int, a *goquery.Selection) {
		if strings.Contains(a.AttrOr("class", ""), "up") {
			a.SetAttr("class", "arrow up")
		} else {
			a.SetAttr("class", "arrow down")
		}
	})
	if wasActive {
		return
	}
	if up {
		arrow.SetAttr("class", "arrow upmod")
	} else {
		arrow.SetAttr("class", "arrow downmod")
	}
}

func (p *FakePage) Type(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure("type", selector); err != nil {
		return err
	}
	if p.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("%w: %s", ErrNotVisible, selector)
	}
	p.Typed = append(p.Typed, TypeCall{Selector: selector, Text: text})
	return nil
}

func (p *FakePage) HTML(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure("html", selector); err != nil {
		return "", err
	}
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotVisible, selector)
	}
	return goquery.OuterHtml(sel)
}

func (p *FakePage) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *FakePage) Settle(ctx context.Context) error {
	p.mu.Lock()
	p.Settles++
	p.mu.Unlock()
	return ctx.Err()
}

// Screenshot returns a tiny placeholder image.
func (p *FakePage) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure("screenshot", ""); err != nil {
		return nil, err
	}
	p.Screenshots++
	return []byte("\x89PNG\r\n\x1a\n"), nil
}

// ArrowClass returns the class of the up or down arrow of the item with fullname.
func (p *FakePage) ArrowClass(fullname string, up bool) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	dir := "down"
	if up {
		dir = "up"
	}
	sel := fmt.Sprintf(`div.thing[data-fullname=%q] .arrow[class*=%q]`, fullname, dir)
	return p.doc.Find(sel).First().AttrOr("class", "")
}

// ClickCount returns how many clicks hit selectors containing substr.
func (p *FakePage) ClickCount(substr string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.Clicks {
		if strings.Contains(c, substr) {
			n++
		}
	}
	return n
}
