// File: internal/resolver/resolver.go

// Package resolver locates page elements through ordered fallback chains.
// The portal renders the same logical controls with different markup across
// sessions and releases (HTML tables vs ARIA pseudo-tables, role-based tabs
// vs plain buttons), so no single selector is reliable. Every lookup in the
// scraper goes through a Resolver with a prioritized strategy list.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/webtopkit/webtop-cli/internal/browser"
)

// ErrNotFound is returned when no strategy in a chain yields a usable
// element. Callers match it with errors.Is.
var ErrNotFound = errors.New("element not found")

// Strategy is one candidate lookup for a logical element: a CSS query,
// optionally post-filtered by contained or excluded text. The text filters
// stand in for text-matching pseudo-selectors that CSS cannot express.
type Strategy struct {
	Query        string
	TextContains string
	TextExcludes string
}

// Css builds a plain query strategy.
func Css(query string) Strategy { return Strategy{Query: query} }

// CssText builds a query strategy filtered by contained text.
func CssText(query, text string) Strategy {
	return Strategy{Query: query, TextContains: text}
}

// RequiredState is the condition an element must satisfy before a strategy
// is accepted.
type RequiredState int

const (
	// StateVisible requires the element to be rendered and visible.
	StateVisible RequiredState = iota
	// StateUsable additionally requires the element not to be disabled.
	StateUsable
)

// disabledMarkerClass is how the portal marks an exhausted pagination edge:
// the control keeps no disabled attribute, only this style class.
const disabledMarkerClass = "empty"

// Resolver tries strategies in order and returns the first element that
// satisfies the required state within a bounded wait.
type Resolver struct {
	logger      *zap.Logger
	visibleWait time.Duration
}

// New creates a Resolver. visibleWait bounds the per-strategy visibility wait.
func New(logger *zap.Logger, visibleWait time.Duration) *Resolver {
	return &Resolver{logger: logger.Named("resolver"), visibleWait: visibleWait}
}

// Resolve attempts each strategy in priority order against the page. For
// each: locate zero-or-more matches, take the first that passes the text
// filter, and verify the required state within the bounded wait. The first
// element passing all checks wins. When every strategy fails the returned
// error wraps ErrNotFound and names the logical element.
func (r *Resolver) Resolve(ctx context.Context, drv browser.Driver, name string, strategies []Strategy, state RequiredState) (browser.Element, error) {
	for _, st := range strategies {
		el, ok := r.tryStrategy(ctx, drv, st, state)
		if ok {
			r.logger.Debug("Resolved element",
				zap.String("element", name), zap.String("query", st.Query))
			return el, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// ResolveIn is Resolve scoped to the subtree of a parent element.
func (r *Resolver) ResolveIn(ctx context.Context, parent browser.Element, name string, strategies []Strategy, state RequiredState) (browser.Element, error) {
	for _, st := range strategies {
		matches, err := parent.Find(ctx, st.Query)
		if err != nil {
			continue
		}
		if el, ok := r.firstAcceptable(ctx, matches, st, state); ok {
			return el, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

func (r *Resolver) tryStrategy(ctx context.Context, drv browser.Driver, st Strategy, state RequiredState) (browser.Element, bool) {
	matches, err := drv.Locate(ctx, st.Query)
	if err != nil {
		r.logger.Debug("Strategy query failed", zap.String("query", st.Query), zap.Error(err))
		return nil, false
	}
	return r.firstAcceptable(ctx, matches, st, state)
}

func (r *Resolver) firstAcceptable(ctx context.Context, matches []browser.Element, st Strategy, state RequiredState) (browser.Element, bool) {
	for _, el := range matches {
		if !matchesText(ctx, el, st) {
			continue
		}
		if err := el.WaitVisible(ctx, r.visibleWait); err != nil {
			continue
		}
		if state == StateUsable {
			disabled, err := IsDisabled(ctx, el)
			if err != nil || disabled {
				continue
			}
		}
		return el, true
	}
	return nil, false
}

func matchesText(ctx context.Context, el browser.Element, st Strategy) bool {
	if st.TextContains == "" && st.TextExcludes == "" {
		return true
	}
	text, err := el.Text(ctx)
	if err != nil {
		return false
	}
	if st.TextContains != "" && !strings.Contains(text, st.TextContains) {
		return false
	}
	if st.TextExcludes != "" && strings.Contains(text, st.TextExcludes) {
		return false
	}
	return true
}

// IsDisabled reports whether an element is unusable. The portal expresses
// disabled state three different ways depending on the control type, so all
// three checks are required: an HTML disabled attribute, aria-disabled, and
// the disabled-marker style class.
func IsDisabled(ctx context.Context, el browser.Element) (bool, error) {
	if _, ok, err := el.Attr(ctx, "disabled"); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}
	if v, ok, err := el.Attr(ctx, "aria-disabled"); err != nil {
		return false, err
	} else if ok && v == "true" {
		return true, nil
	}
	class, _, err := el.Attr(ctx, "class")
	if err != nil {
		return false, err
	}
	for _, c := range strings.Fields(class) {
		if c == disabledMarkerClass {
			return true, nil
		}
	}
	return false, nil
}
