// File: internal/scrape/navigate/navigate.go

// Package navigate moves an authenticated session from the dashboard to the
// homework view. The primary path follows the UI links the way a user would;
// when the links cannot be resolved it falls back to the view's direct URL.
package navigate

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/webtopkit/webtop-cli/internal/browser"
	"github.com/webtopkit/webtop-cli/internal/config"
	"github.com/webtopkit/webtop-cli/internal/resolver"
	"github.com/webtopkit/webtop-cli/internal/selectors"
)

// ErrSessionExpired is returned when the portal bounces a navigation back to
// a login page, meaning the session is not (or no longer) authenticated.
var ErrSessionExpired = errors.New("session not authenticated")

// ErrHomeworkUnreachable is returned when neither link-following nor the
// direct URL lands on the homework view.
var ErrHomeworkUnreachable = errors.New("homework view unreachable")

// Navigator reaches the homework view from wherever the session currently is.
type Navigator struct {
	logger *zap.Logger
	cfg    config.Config
	sel    selectors.Set
	res    *resolver.Resolver
}

func New(cfg config.Config, sel selectors.Set, logger *zap.Logger) *Navigator {
	return &Navigator{
		logger: logger.Named("navigate"),
		cfg:    cfg,
		sel:    sel,
		res:    resolver.New(logger, cfg.Network.ElementVisible),
	}
}

// ToHomework brings the page to the lesson-topics/homework view. It tries the
// dashboard links first, then the direct URL, and verifies the landing URL in
// both cases.
func (n *Navigator) ToHomework(ctx context.Context, drv browser.Driver) error {
	n.logger.Info("Navigating to homework view...")

	if err := n.viaLinks(ctx, drv); err != nil {
		n.logger.Debug("Link navigation failed, falling back to direct URL.", zap.Error(err))
		if err := n.viaDirectURL(ctx, drv); err != nil {
			return err
		}
	}

	url, err := drv.CurrentURL(ctx)
	if err != nil {
		return ErrHomeworkUnreachable
	}
	if n.isLoginURL(url) {
		return ErrSessionExpired
	}
	if !strings.Contains(url, n.sel.HomeworkURLPart) {
		n.logger.Warn("Landed off the homework view.", zap.String("url", url))
		return ErrHomeworkUnreachable
	}

	if err := drv.WaitIdle(ctx, n.cfg.Network.NetworkIdle); err != nil {
		n.logger.Debug("Network idle wait timed out on homework view.", zap.Error(err))
	}
	_ = drv.Sleep(ctx, n.cfg.Scraper.AfterPageLoad)
	n.logger.Info("Homework view loaded.", zap.String("url", url))
	return nil
}

// viaLinks clicks through the student-card link and then the homework tab.
func (n *Navigator) viaLinks(ctx context.Context, drv browser.Driver) error {
	card, err := n.res.Resolve(ctx, drv, "student card link", n.sel.StudentCard, resolver.StateVisible)
	if err != nil {
		return err
	}
	if err := card.Click(ctx); err != nil {
		return err
	}
	n.awaitURLPart(ctx, drv, n.sel.StudentCardURLPart)
	_ = drv.Sleep(ctx, n.cfg.Scraper.AfterPageLoad)

	hw, err := n.res.Resolve(ctx, drv, "homework link", n.sel.HomeworkLink, resolver.StateVisible)
	if err != nil {
		return err
	}
	if err := hw.Click(ctx); err != nil {
		// Overlays can intercept the click target on the card page.
		n.logger.Debug("Homework link click intercepted, forcing.", zap.Error(err))
		if err := hw.ForceClick(ctx); err != nil {
			return err
		}
	}
	n.awaitURLPart(ctx, drv, n.sel.HomeworkURLPart)
	return nil
}

// viaDirectURL loads the homework view by its known URL.
func (n *Navigator) viaDirectURL(ctx context.Context, drv browser.Driver) error {
	n.logger.Info("Opening homework view by direct URL.")
	if err := drv.Navigate(ctx, n.cfg.Portal.HomeworkURL); err != nil {
		return err
	}
	_ = drv.Sleep(ctx, n.cfg.Scraper.AfterPageLoad)
	return nil
}

func (n *Navigator) awaitURLPart(ctx context.Context, drv browser.Driver, part string) {
	match := func(url string) bool { return strings.Contains(url, part) }
	if err := drv.WaitURL(ctx, match, n.cfg.Network.URLWait); err != nil {
		n.logger.Debug("URL wait timed out.", zap.String("part", part), zap.Error(err))
	}
}

func (n *Navigator) isLoginURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.Contains(lower, n.sel.LoginIndicator) ||
		strings.Contains(lower, n.sel.IdentityDomain)
}
