// File: internal/browser/driver.go

// Package browser drives a Chrome instance over the DevTools protocol and
// exposes it to the scraper behind the Driver/Element interfaces. The scraper
// components only ever see these interfaces; tests substitute an in-memory
// implementation.
package browser

import (
	"context"
	"time"
)

// Driver is the page-level capability the scraper consumes: load a URL,
// query elements, wait for page states, and capture diagnostics. One Driver
// corresponds to one tab; it is owned by the orchestrator and borrowed by
// each component for the duration of its call.
type Driver interface {
	// Navigate loads the URL and waits for the page to settle.
	Navigate(ctx context.Context, url string) error
	// Reload reloads the current page and waits for it to settle.
	Reload(ctx context.Context) error
	// CurrentURL returns the page's current location.
	CurrentURL(ctx context.Context) (string, error)
	// Title returns the current document title.
	Title(ctx context.Context) (string, error)
	// BodyText returns the visible text of the document body.
	BodyText(ctx context.Context) (string, error)
	// Locate returns zero or more elements matching the CSS selector.
	// An empty result is not an error.
	Locate(ctx context.Context, selector string) ([]Element, error)
	// WaitIdle blocks until network activity quiets down or the timeout
	// elapses. A timeout is reported as an error; most call sites treat it
	// as non-fatal.
	WaitIdle(ctx context.Context, timeout time.Duration) error
	// WaitURL polls the current URL until match reports true or the timeout
	// elapses.
	WaitURL(ctx context.Context, match func(url string) bool, timeout time.Duration) error
	// ScrollTo scrolls the viewport to an absolute position. A negative y
	// means the bottom of the document.
	ScrollTo(ctx context.Context, x, y float64) error
	// Screenshot writes a full-page capture to path.
	Screenshot(ctx context.Context, path string) error
	// Sleep pauses for the given duration, honoring context cancellation.
	Sleep(ctx context.Context, d time.Duration) error
}

// Element is a handle to a located DOM node.
type Element interface {
	// Visible reports whether the node is rendered and visible.
	Visible(ctx context.Context) (bool, error)
	// Attr returns an attribute value and whether the attribute is present.
	Attr(ctx context.Context, name string) (value string, ok bool, err error)
	// Text returns the node's text content.
	Text(ctx context.Context) (string, error)
	// OuterHTML returns the node's serialized subtree.
	OuterHTML(ctx context.Context) (string, error)
	// Click dispatches a click on the node.
	Click(ctx context.Context) error
	// ForceClick clicks via script, bypassing hit-target interception.
	ForceClick(ctx context.Context) error
	// Fill replaces the value of an input control.
	Fill(ctx context.Context, value string) error
	// WaitVisible blocks until the node is visible or the timeout elapses.
	WaitVisible(ctx context.Context, timeout time.Duration) error
	// ScrollIntoView scrolls the node into the viewport.
	ScrollIntoView(ctx context.Context) error
	// Find returns descendants of the node matching the CSS selector.
	Find(ctx context.Context, selector string) ([]Element, error)
	// Closest returns the nearest ancestor (or the node itself) matching
	// the CSS selector, and whether one exists.
	Closest(ctx context.Context, selector string) (Element, bool, error)
}
