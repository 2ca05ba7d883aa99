// File: internal/browser/browsertest/fake.go

// Package browsertest provides an in-memory Driver backed by parsed HTML, so
// component tests can exercise the full lookup/interaction logic against
// captured portal markup without a browser. Click and navigation behavior is
// injected per test through hooks.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/webtopkit/webtop-cli/internal/browser"
)

// Fill records one input fill: which control (identified by its aria-label
// and type attributes) received which value.
type Fill struct {
	AriaLabel string
	Type      string
	Value     string
}

// Driver is the fake page. All mutation goes through SetPage or the hooks.
type Driver struct {
	mu    sync.Mutex
	doc   *goquery.Document
	url   string
	title string

	// Recorded interactions, for assertions.
	NavigateCalls []string
	Screenshots   []string
	Fills         []Fill
	Reloads       int

	// OnClick is invoked for Click and ForceClick. The selection is the
	// clicked node; the hook typically swaps the page via SetPage.
	OnClick func(d *Driver, sel *goquery.Selection) error
	// OnNavigate is invoked after a Navigate call is recorded.
	OnNavigate func(d *Driver, url string)
}

var _ browser.Driver = (*Driver)(nil)

// New builds a fake driver showing the given page. It panics on malformed
// HTML; fixtures are test-controlled.
func New(url, html string) *Driver {
	d := &Driver{}
	d.SetPage(url, html)
	return d
}

// SetPage replaces the current document and URL.
func (d *Driver) SetPage(url, html string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(fmt.Sprintf("browsertest: bad fixture HTML: %v", err))
	}
	d.mu.Lock()
	d.doc = doc
	d.url = url
	d.mu.Unlock()
}

// SetTitle sets the document title reported by Title.
func (d *Driver) SetTitle(title string) {
	d.mu.Lock()
	d.title = title
	d.mu.Unlock()
}

// SetURL changes only the reported URL, simulating a redirect.
func (d *Driver) SetURL(url string) {
	d.mu.Lock()
	d.url = url
	d.mu.Unlock()
}

func (d *Driver) Navigate(_ context.Context, url string) error {
	d.mu.Lock()
	d.NavigateCalls = append(d.NavigateCalls, url)
	d.url = url
	hook := d.OnNavigate
	d.mu.Unlock()
	if hook != nil {
		hook(d, url)
	}
	return nil
}

func (d *Driver) Reload(_ context.Context) error {
	d.mu.Lock()
	d.Reloads++
	d.mu.Unlock()
	return nil
}

func (d *Driver) CurrentURL(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, nil
}

func (d *Driver) Title(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.title != "" {
		return d.title, nil
	}
	return d.doc.Find("title").Text(), nil
}

func (d *Driver) BodyText(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Find("body").Text(), nil
}

func (d *Driver) Locate(_ context.Context, selector string) ([]browser.Element, error) {
	d.mu.Lock()
	sel := d.doc.Find(selector)
	d.mu.Unlock()
	return d.wrap(sel), nil
}

func (d *Driver) wrap(sel *goquery.Selection) []browser.Element {
	elements := make([]browser.Element, 0, sel.Length())
	for i := 0; i < sel.Length(); i++ {
		elements = append(elements, &Element{driver: d, sel: sel.Eq(i)})
	}
	return elements
}

func (d *Driver) WaitIdle(context.Context, time.Duration) error { return nil }

func (d *Driver) WaitURL(ctx context.Context, match func(string) bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		url, _ := d.CurrentURL(ctx)
		if match(url) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("fake driver: no matching URL within %s, still at %s", timeout, url)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func (d *Driver) ScrollTo(context.Context, float64, float64) error { return nil }

func (d *Driver) Screenshot(_ context.Context, path string) error {
	d.mu.Lock()
	d.Screenshots = append(d.Screenshots, path)
	d.mu.Unlock()
	return nil
}

// Sleep returns immediately; the fake has no rendering latency to wait out.
func (d *Driver) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// Element wraps one goquery node.
type Element struct {
	driver *Driver
	sel    *goquery.Selection
}

var _ browser.Element = (*Element)(nil)

// Visible honors the hidden attribute, a "hidden" class, and inline
// display:none, which is enough to model the portal fixtures.
func (e *Element) Visible(context.Context) (bool, error) {
	if _, hidden := e.sel.Attr("hidden"); hidden {
		return false, nil
	}
	if e.sel.HasClass("hidden") {
		return false, nil
	}
	if style, ok := e.sel.Attr("style"); ok {
		compact := strings.ReplaceAll(style, " ", "")
		if strings.Contains(compact, "display:none") || strings.Contains(compact, "visibility:hidden") {
			return false, nil
		}
	}
	return true, nil
}

func (e *Element) Attr(_ context.Context, name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *Element) Text(context.Context) (string, error) {
	return e.sel.Text(), nil
}

func (e *Element) OuterHTML(context.Context) (string, error) {
	return goquery.OuterHtml(e.sel)
}

func (e *Element) Click(ctx context.Context) error {
	if e.driver.OnClick != nil {
		return e.driver.OnClick(e.driver, e.sel)
	}
	return nil
}

func (e *Element) ForceClick(ctx context.Context) error {
	return e.Click(ctx)
}

func (e *Element) Fill(_ context.Context, value string) error {
	label, _ := e.sel.Attr("aria-label")
	typ, _ := e.sel.Attr("type")
	e.driver.mu.Lock()
	e.driver.Fills = append(e.driver.Fills, Fill{AriaLabel: label, Type: typ, Value: value})
	e.driver.mu.Unlock()
	return nil
}

func (e *Element) WaitVisible(ctx context.Context, _ time.Duration) error {
	visible, err := e.Visible(ctx)
	if err != nil {
		return err
	}
	if !visible {
		return fmt.Errorf("fake driver: element not visible")
	}
	return nil
}

func (e *Element) ScrollIntoView(context.Context) error { return nil }

func (e *Element) Find(_ context.Context, selector string) ([]browser.Element, error) {
	return e.driver.wrap(e.sel.Find(selector)), nil
}

func (e *Element) Closest(_ context.Context, selector string) (browser.Element, bool, error) {
	hit := e.sel.Closest(selector)
	if hit.Length() == 0 {
		return nil, false, nil
	}
	return &Element{driver: e.driver, sel: hit.Eq(0)}, true, nil
}
