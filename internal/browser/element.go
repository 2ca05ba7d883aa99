// File: internal/browser/element.go
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// element addresses one DOM node by its absolute XPath, computed at locate
// time. The handle stays valid while the node remains attached; the scraper
// re-locates after any navigation.
type element struct {
	session *Session
	xpath   string
}

var _ Element = (*element)(nil)

func (e *element) Visible(ctx context.Context) (bool, error) {
	var visible bool
	script := jsCall(jsVisible, e.xpath)
	if err := e.session.run(ctx, chromedp.Evaluate(script, &visible)); err != nil {
		return false, fmt.Errorf("visibility check failed: %w", err)
	}
	return visible, nil
}

func (e *element) Attr(ctx context.Context, name string) (string, bool, error) {
	var value string
	var ok bool
	if err := e.session.run(ctx, chromedp.AttributeValue(e.xpath, name, &value, &ok, chromedp.BySearch)); err != nil {
		return "", false, fmt.Errorf("attribute %q read failed: %w", name, err)
	}
	return value, ok, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.session.run(ctx, chromedp.TextContent(e.xpath, &text, chromedp.BySearch)); err != nil {
		return "", fmt.Errorf("text read failed: %w", err)
	}
	return text, nil
}

func (e *element) OuterHTML(ctx context.Context) (string, error) {
	var html string
	if err := e.session.run(ctx, chromedp.OuterHTML(e.xpath, &html, chromedp.BySearch)); err != nil {
		return "", fmt.Errorf("outer html read failed: %w", err)
	}
	return html, nil
}

func (e *element) Click(ctx context.Context) error {
	clickCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := e.session.run(clickCtx, chromedp.Click(e.xpath, chromedp.BySearch)); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

func (e *element) ForceClick(ctx context.Context) error {
	var clicked bool
	script := jsCall(jsForceClick, e.xpath)
	if err := e.session.run(ctx, chromedp.Evaluate(script, &clicked)); err != nil {
		return fmt.Errorf("forced click failed: %w", err)
	}
	if !clicked {
		return fmt.Errorf("forced click: node no longer attached")
	}
	return nil
}

func (e *element) Fill(ctx context.Context, value string) error {
	var filled bool
	script := jsCall(jsFill, e.xpath, value)
	if err := e.session.run(ctx, chromedp.Evaluate(script, &filled)); err != nil {
		return fmt.Errorf("fill failed: %w", err)
	}
	if !filled {
		return fmt.Errorf("fill: node no longer attached")
	}
	return nil
}

func (e *element) WaitVisible(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := e.session.run(waitCtx, chromedp.WaitVisible(e.xpath, chromedp.BySearch)); err != nil {
		return fmt.Errorf("element not visible within %s: %w", timeout, err)
	}
	return nil
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	if err := e.session.run(ctx, chromedp.ScrollIntoView(e.xpath, chromedp.BySearch)); err != nil {
		return fmt.Errorf("scroll into view failed: %w", err)
	}
	return nil
}

func (e *element) Find(ctx context.Context, selector string) ([]Element, error) {
	return e.session.locateUnder(ctx, selector, e.xpath)
}

func (e *element) Closest(ctx context.Context, selector string) (Element, bool, error) {
	var xp string
	script := jsCall(jsClosest, selector, e.xpath)
	if err := e.session.run(ctx, chromedp.Evaluate(script, &xp)); err != nil {
		return nil, false, fmt.Errorf("closest %q failed: %w", selector, err)
	}
	if xp == "" {
		return nil, false, nil
	}
	return &element{session: e.session, xpath: xp}, true, nil
}
