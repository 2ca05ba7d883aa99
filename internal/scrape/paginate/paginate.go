// File: internal/scrape/paginate/paginate.go

// Package paginate walks the homework view's week pages until the requested
// date is on screen. The view exposes no date picker, only previous/next week
// controls, so reaching a date means reading the dates currently visible and
// stepping in the right direction. Exhausted edges are marked by a style
// class on the control rather than a disabled attribute.
package paginate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/webtopkit/webtop-cli/internal/browser"
	"github.com/webtopkit/webtop-cli/internal/config"
	"github.com/webtopkit/webtop-cli/internal/dates"
	"github.com/webtopkit/webtop-cli/internal/resolver"
	"github.com/webtopkit/webtop-cli/internal/selectors"
)

var (
	// ErrNoDatesVisible means the current page shows no parseable date
	// headings, so no stepping direction can be chosen.
	ErrNoDatesVisible = errors.New("no dates visible on page")
	// ErrDateUnreachable means stepping in both directions failed to bring
	// the target date on screen within the page budget.
	ErrDateUnreachable = errors.New("date not reachable by pagination")
	// ErrDateMissingFromWeek means the visible week range brackets the
	// target date but no heading carries it. The portal simply has no card
	// for that day; stepping further cannot help.
	ErrDateMissingFromWeek = errors.New("date absent from its week page")
)

type direction int

const (
	backward direction = iota
	forward
)

func (d direction) String() string {
	if d == forward {
		return "forward"
	}
	return "backward"
}

// Paginator steps the homework view between week pages.
type Paginator struct {
	logger  *zap.Logger
	cfg     config.Config
	sel     selectors.Set
	res     *resolver.Resolver
	dateRe  *regexp.Regexp
	maxHops int
}

func New(cfg config.Config, sel selectors.Set, logger *zap.Logger) *Paginator {
	return &Paginator{
		logger:  logger.Named("paginate"),
		cfg:     cfg,
		sel:     sel,
		res:     resolver.New(logger, cfg.Network.ElementVisible),
		dateRe:  regexp.MustCompile(sel.DateRegex),
		maxHops: cfg.Scraper.MaxPaginationPages,
	}
}

// DatesOnPage reads every date heading currently visible and returns the
// parsed dates in document order. Headings without a parseable date are
// skipped.
func (p *Paginator) DatesOnPage(ctx context.Context, drv browser.Driver) ([]time.Time, error) {
	headings, err := drv.Locate(ctx, p.sel.DateHeading)
	if err != nil {
		return nil, fmt.Errorf("locate date headings: %w", err)
	}
	var out []time.Time
	for _, h := range headings {
		text, terr := h.Text(ctx)
		if terr != nil {
			continue
		}
		match := p.dateRe.FindString(text)
		if match == "" {
			continue
		}
		t, perr := dates.Parse(match)
		if perr != nil {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// FindDate reports whether the target date is on the current page.
func (p *Paginator) FindDate(ctx context.Context, drv browser.Driver, target time.Time) (bool, error) {
	visible, err := p.DatesOnPage(ctx, drv)
	if err != nil {
		return false, err
	}
	for _, d := range visible {
		if sameDay(d, target) {
			return true, nil
		}
	}
	return false, nil
}

// ToDate steps week pages until the target date is visible. It chooses the
// direction from the visible date range, revisits no page signature more than
// once per direction, and flips direction at most once (a repeated signature
// or an exhausted edge). When the visible range brackets the target but no
// heading carries it, the walk stops with ErrDateMissingFromWeek instead of
// wandering.
func (p *Paginator) ToDate(ctx context.Context, drv browser.Driver, target time.Time) error {
	p.logger.Info("Paginating to date.", zap.String("date", dates.Display(target)))

	visited := make(map[string]bool)
	flipped := false

	for hop := 0; hop < p.maxHops; hop++ {
		visible, err := p.DatesOnPage(ctx, drv)
		if err != nil {
			return err
		}
		if len(visible) == 0 {
			// Lazily rendered cards sometimes need a scroll and a beat.
			_ = drv.ScrollTo(ctx, 0, -1)
			_ = drv.Sleep(ctx, p.cfg.Scraper.SettleLong)
			if visible, err = p.DatesOnPage(ctx, drv); err != nil {
				return err
			}
			if len(visible) == 0 {
				return ErrNoDatesVisible
			}
		}

		lo, hi := bounds(visible)
		for _, d := range visible {
			if sameDay(d, target) {
				p.logger.Info("Target date is on page.",
					zap.Int("hops", hop), zap.String("date", dates.Display(target)))
				return nil
			}
		}
		if !target.Before(lo) && !target.After(hi) {
			p.logger.Warn("Week range brackets the date but no card carries it.",
				zap.String("from", dates.Display(lo)), zap.String("to", dates.Display(hi)))
			return ErrDateMissingFromWeek
		}

		dir := forward
		if target.Before(lo) {
			dir = backward
		}

		sig := dates.Display(lo) + ".." + dates.Display(hi) + "/" + dir.String()
		if visited[sig] {
			if flipped {
				return ErrDateUnreachable
			}
			flipped = true
			dir = opposite(dir)
			p.logger.Debug("Page signature repeated, flipping direction.",
				zap.String("direction", dir.String()))
		}
		visited[sig] = true

		if err := p.step(ctx, drv, dir); err != nil {
			if !errors.Is(err, resolver.ErrNotFound) || flipped {
				return fmt.Errorf("%w: %v", ErrDateUnreachable, err)
			}
			// Edge reached; the only remaining hope is the other way.
			flipped = true
			if err := p.step(ctx, drv, opposite(dir)); err != nil {
				return fmt.Errorf("%w: %v", ErrDateUnreachable, err)
			}
		}
	}
	return ErrDateUnreachable
}

// step clicks one week control and waits for the view to repaint. The
// controls require usable state: an edge page keeps the control rendered but
// marks it with the disabled style class, which the resolver rejects.
func (p *Paginator) step(ctx context.Context, drv browser.Driver, dir direction) error {
	chain := p.sel.PrevWeek
	name := "previous week control"
	if dir == forward {
		chain = p.sel.NextWeek
		name = "next week control"
	}
	ctrl, err := p.res.Resolve(ctx, drv, name, chain, resolver.StateUsable)
	if err != nil {
		return err
	}
	if err := ctrl.ScrollIntoView(ctx); err != nil {
		p.logger.Debug("Scroll to week control failed.", zap.Error(err))
	}
	if err := ctrl.Click(ctx); err != nil {
		p.logger.Debug("Week control click intercepted, forcing.", zap.Error(err))
		if err := ctrl.ForceClick(ctx); err != nil {
			return err
		}
	}
	if err := drv.WaitIdle(ctx, p.cfg.Network.NetworkIdle); err != nil {
		p.logger.Debug("Network idle wait timed out after week step.", zap.Error(err))
	}
	return drv.Sleep(ctx, p.cfg.Scraper.AfterPageLoad)
}

func bounds(ds []time.Time) (lo, hi time.Time) {
	lo, hi = ds[0], ds[0]
	for _, d := range ds[1:] {
		if d.Before(lo) {
			lo = d
		}
		if d.After(hi) {
			hi = d
		}
	}
	return lo, hi
}

func opposite(d direction) direction {
	if d == forward {
		return backward
	}
	return forward
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
