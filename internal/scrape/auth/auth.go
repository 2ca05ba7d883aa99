// File: internal/scrape/auth/auth.go

// Package auth drives the portal login: entry page, consent banner, the
// federated identity provider handoff, tab selection, credential entry, and
// redirect verification. The provider's page is adversarial in the mundane
// sense: controls render before their handlers attach, the password field
// has a readonly guard, a challenge widget may or may not appear, and the
// same flow takes visibly different UI paths across sessions. Every step
// therefore either retries within a bound or degrades explicitly.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/webtopkit/webtop-cli/internal/browser"
	"github.com/webtopkit/webtop-cli/internal/config"
	"github.com/webtopkit/webtop-cli/internal/resolver"
	"github.com/webtopkit/webtop-cli/internal/selectors"
)

var (
	// ErrLoginFailed is the generic terminal failure of the flow: no
	// redirect within the timeout, a textual error indicator, or a
	// mitigation block page that survived a reload.
	ErrLoginFailed = errors.New("login failed")
	// ErrChallenge marks an unresolved, visible challenge (CAPTCHA) that
	// blocked the redirect. The flow surfaces it; it does not solve it.
	ErrChallenge = errors.New("login blocked by unresolved challenge")
)

// probeResult is the outcome of interacting with an optional UI element.
type probeResult int

const (
	probeHandled probeResult = iota
	probeAbsent
	probeIgnored
)

// Flow is the authentication state machine. It borrows the page for the
// duration of Login and owns no page state afterwards.
type Flow struct {
	logger *zap.Logger
	cfg    config.Config
	sel    selectors.Set
	res    *resolver.Resolver

	username string
	password string
}

// New builds the flow. Credentials come from the portal config; their
// absence is the orchestrator's problem, checked before any navigation.
func New(cfg config.Config, sel selectors.Set, logger *zap.Logger) *Flow {
	return &Flow{
		logger:   logger.Named("auth"),
		cfg:      cfg,
		sel:      sel,
		res:      resolver.New(logger, cfg.Network.ElementVisible),
		username: cfg.Portal.Username,
		password: cfg.Portal.Password,
	}
}

// Login drives the flow from the entry URL to an authenticated dashboard.
// It returns nil on success. Required-field resolution failures (username,
// password, login button) propagate wrapped around resolver.ErrNotFound;
// every other failure is captured with best-effort diagnostics and reported
// as ErrLoginFailed or ErrChallenge.
func (f *Flow) Login(ctx context.Context, drv browser.Driver) error {
	delays := f.cfg.Scraper

	// A small pause before the first navigation looks less mechanical.
	_ = drv.Sleep(ctx, delays.SettleShort)
	if err := drv.Navigate(ctx, f.cfg.Portal.LoginURL); err != nil {
		f.logger.Error("Could not load login page.", zap.Error(err))
		f.captureDiagnostics(ctx, drv)
		return ErrLoginFailed
	}
	_ = drv.Sleep(ctx, delays.SettleMedium)

	if blocked := f.handleBlockPage(ctx, drv); blocked {
		f.captureDiagnostics(ctx, drv)
		return ErrLoginFailed
	}

	f.probeCookieConsent(ctx, drv)

	if err := f.clickIdentityEntry(ctx, drv); err != nil {
		f.logger.Error("Could not invoke identity provider.", zap.Error(err))
		f.captureDiagnostics(ctx, drv)
		return ErrLoginFailed
	}

	f.awaitIdentityPage(ctx, drv)
	f.selectCredentialsTab(ctx, drv)

	if err := f.fillCredentials(ctx, drv); err != nil {
		// Field resolution failures are the one class the caller must see.
		if errors.Is(err, resolver.ErrNotFound) {
			return err
		}
		f.logger.Error("Could not fill credentials.", zap.Error(err))
		f.captureDiagnostics(ctx, drv)
		return ErrLoginFailed
	}

	if err := f.submit(ctx, drv); err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			return err
		}
		f.logger.Error("Could not submit login form.", zap.Error(err))
		f.captureDiagnostics(ctx, drv)
		return ErrLoginFailed
	}

	if err := f.verifyRedirect(ctx, drv); err != nil {
		f.logger.Warn("Login verification failed.", zap.Error(err))
		f.captureDiagnostics(ctx, drv)
		return err
	}

	f.logger.Info("Login successful.")
	return nil
}

// handleBlockPage detects a bot-mitigation block page by title text. One
// long wait and reload is attempted before giving up.
func (f *Flow) handleBlockPage(ctx context.Context, drv browser.Driver) bool {
	if !f.titleIndicatesBlock(ctx, drv) {
		return false
	}
	f.logger.Warn("Bot mitigation is blocking the request, waiting and retrying once...")
	_ = drv.Sleep(ctx, 3*f.cfg.Scraper.SettleExtraLong)
	if err := drv.Reload(ctx); err != nil {
		f.logger.Debug("Reload after block page failed.", zap.Error(err))
		return true
	}
	_ = drv.Sleep(ctx, f.cfg.Scraper.SettleMedium)
	if f.titleIndicatesBlock(ctx, drv) {
		f.logger.Error("Still blocked after retry.")
		return true
	}
	return false
}

func (f *Flow) titleIndicatesBlock(ctx context.Context, drv browser.Driver) bool {
	title, err := drv.Title(ctx)
	if err != nil {
		return false
	}
	lower := strings.ToLower(title)
	for _, part := range f.sel.BlockTitleParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// probeCookieConsent clicks the consent control if present. Absence is the
// normal case and not an error.
func (f *Flow) probeCookieConsent(ctx context.Context, drv browser.Driver) probeResult {
	el, err := f.res.Resolve(ctx, drv, "cookie consent", f.sel.CookieConsent, resolver.StateVisible)
	if err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			return probeAbsent
		}
		f.logger.Debug("Cookie consent probe errored, ignoring.", zap.Error(err))
		return probeIgnored
	}
	if err := el.Click(ctx); err != nil {
		f.logger.Debug("Cookie consent click failed, ignoring.", zap.Error(err))
		return probeIgnored
	}
	_ = drv.Sleep(ctx, f.cfg.Scraper.SettleLong)
	f.logger.Debug("Cookie consent accepted.")
	return probeHandled
}

// clickIdentityEntry locates the federated-login control, waits for it to be
// both visible and enabled, then clicks. The control renders before its
// handler attaches, so enablement is polled with a bounded retry.
func (f *Flow) clickIdentityEntry(ctx context.Context, drv browser.Driver) error {
	f.logger.Info("Invoking identity provider login...")
	el, err := f.res.Resolve(ctx, drv, "identity provider entry", f.sel.IdentityEntry, resolver.StateVisible)
	if err != nil {
		return err
	}
	f.awaitEnabled(ctx, el)
	return el.Click(ctx)
}

// awaitEnabled polls until the element loses its disabled markers or the
// policy is exhausted. Exhaustion is not fatal; the click is attempted
// regardless, matching the flow's tolerance philosophy.
func (f *Flow) awaitEnabled(ctx context.Context, el browser.Element) {
	policy := resolver.Policy{
		Attempts: f.cfg.Scraper.EnablePollAttempts,
		Interval: f.cfg.Scraper.EnablePollInterval,
	}
	enabled, err := resolver.Poll(ctx, policy, func(ctx context.Context) (bool, error) {
		disabled, derr := resolver.IsDisabled(ctx, el)
		if derr != nil {
			return false, nil
		}
		return !disabled, nil
	})
	if err != nil || !enabled {
		f.logger.Warn("Control still disabled after polling, clicking anyway.")
	}
}

// awaitIdentityPage waits for the URL to land on the identity provider's
// domain and the page to settle. Both waits are best-effort.
func (f *Flow) awaitIdentityPage(ctx context.Context, drv browser.Driver) {
	f.logger.Debug("Waiting for redirect to identity provider...")
	onProvider := func(url string) bool {
		return strings.Contains(url, f.sel.IdentityDomain)
	}
	if err := drv.WaitURL(ctx, onProvider, f.cfg.Network.URLWait); err != nil {
		f.logger.Debug("Identity provider URL wait timed out.", zap.Error(err))
	}
	if err := drv.WaitIdle(ctx, f.cfg.Network.NetworkIdle); err != nil {
		f.logger.Debug("Network idle wait timed out on identity page.", zap.Error(err))
	}
	_ = drv.Sleep(ctx, f.cfg.Scraper.SettleExtraLong)

	if url, err := drv.CurrentURL(ctx); err == nil && !strings.Contains(url, f.sel.IdentityDomain) {
		f.logger.Warn("Expected identity provider page.", zap.String("url", url))
	}
}

// selectCredentialsTab switches the identity page to the username/password
// method unless it is already active. Failure to click is not fatal; the tab
// may already be selected in a way none of the signals caught.
func (f *Flow) selectCredentialsTab(ctx context.Context, drv browser.Driver) {
	f.logger.Info("Selecting username/password tab...")
	_ = drv.Sleep(ctx, f.cfg.Scraper.AfterTabSwitch)

	if f.tabAlreadySelected(ctx, drv) {
		f.logger.Debug("Credentials tab already selected, skipping click.")
		_ = drv.Sleep(ctx, f.cfg.Scraper.AfterTabSwitch)
		return
	}
	if !f.clickCredentialsTab(ctx, drv) {
		f.logger.Warn("Could not click credentials tab, continuing; it may already be selected.")
	}
}

// tabAlreadySelected checks three independent signals: a visible credential
// field, the tab's selected state, and a password field whose label matches.
// Any positive signal wins.
func (f *Flow) tabAlreadySelected(ctx context.Context, drv browser.Driver) bool {
	// Signal 1: a username field is already visible.
	for _, st := range f.sel.Username {
		matches, err := drv.Locate(ctx, st.Query)
		if err != nil || len(matches) == 0 {
			continue
		}
		if visible, err := matches[0].Visible(ctx); err == nil && visible {
			f.logger.Debug("Username field visible; tab appears selected.")
			return true
		}
	}

	// Signal 2: the tab itself reports selection via aria-selected or class.
	tabs, err := drv.Locate(ctx, f.sel.TabRole)
	if err == nil {
		for _, tab := range tabs {
			text, terr := tab.Text(ctx)
			if terr != nil || !strings.Contains(text, f.sel.UsernameTabText) || strings.Contains(text, f.sel.MobileTabExclude) {
				continue
			}
			if sel, ok, _ := tab.Attr(ctx, "aria-selected"); ok && sel == "true" {
				f.logger.Debug("Tab reports aria-selected.")
				return true
			}
			if class, ok, _ := tab.Attr(ctx, "class"); ok {
				lower := strings.ToLower(class)
				if strings.Contains(lower, "selected") || strings.Contains(lower, "active") {
					f.logger.Debug("Tab class reports selection.")
					return true
				}
			}
		}
	}

	// Signal 3: a visible password field with a matching, non-mobile label.
	for _, st := range f.sel.Password {
		matches, err := drv.Locate(ctx, st.Query)
		if err != nil || len(matches) == 0 {
			continue
		}
		visible, verr := matches[0].Visible(ctx)
		if verr != nil || !visible {
			continue
		}
		label, ok, _ := matches[0].Attr(ctx, "aria-label")
		if ok && strings.Contains(label, f.sel.PasswordLabel) && !strings.Contains(label, f.sel.MobileTabExclude) {
			f.logger.Debug("Password field with matching label visible; tab appears selected.")
			return true
		}
	}
	return false
}

// clickCredentialsTab clicks the tab matching the username/password text,
// excluding any tab whose text also matches the one-time mobile method.
func (f *Flow) clickCredentialsTab(ctx context.Context, drv browser.Driver) bool {
	strategies := []resolver.Strategy{
		{Query: f.sel.TabRole, TextContains: f.sel.UsernameTabFullText, TextExcludes: f.sel.MobileTabExclude},
		{Query: f.sel.TabRole, TextContains: f.sel.UsernameTabText, TextExcludes: f.sel.MobileTabExclude},
	}
	tab, err := f.res.Resolve(ctx, drv, "credentials tab", strategies, resolver.StateVisible)
	if err != nil {
		f.logger.Debug("Credentials tab not resolved.", zap.Error(err))
		return false
	}
	if err := tab.Click(ctx); err != nil {
		f.logger.Debug("Credentials tab click failed.", zap.Error(err))
		return false
	}
	_ = drv.Sleep(ctx, f.cfg.Scraper.AfterTabSwitch)
	return true
}

// fillCredentials enters both values. The password field is clicked before
// filling to clear its readonly guard, and a settle delay afterwards gives
// any asynchronous challenge widget time to initialize.
func (f *Flow) fillCredentials(ctx context.Context, drv browser.Driver) error {
	f.logger.Info("Filling username...")
	usernameField, err := f.res.Resolve(ctx, drv, "username field", f.sel.Username, resolver.StateVisible)
	if err != nil {
		return err
	}
	if err := usernameField.Fill(ctx, f.username); err != nil {
		return fmt.Errorf("username fill: %w", err)
	}
	_ = drv.Sleep(ctx, f.cfg.Scraper.AfterFill)

	f.logger.Info("Filling password...")
	passwordField, err := f.res.Resolve(ctx, drv, "password field", f.sel.Password, resolver.StateVisible)
	if err != nil {
		return err
	}
	if err := passwordField.Click(ctx); err != nil {
		f.logger.Debug("Password field pre-click failed.", zap.Error(err))
	}
	_ = drv.Sleep(ctx, f.cfg.Scraper.SettleShort)
	if err := passwordField.Fill(ctx, f.password); err != nil {
		return fmt.Errorf("password fill: %w", err)
	}
	_ = drv.Sleep(ctx, f.cfg.Scraper.AfterFill)
	_ = drv.Sleep(ctx, f.cfg.Scraper.ChallengeSettle)
	return nil
}

// submit locates the login control and clicks it. The control must be a real
// submit button, not one of the method tabs, which also carry the login
// text; disambiguation is by role and ancestry.
func (f *Flow) submit(ctx context.Context, drv browser.Driver) error {
	f.logger.Info("Clicking login button...")
	btn, err := f.findLoginButton(ctx, drv)
	if err != nil {
		return err
	}
	f.awaitEnabled(ctx, btn)
	return btn.Click(ctx)
}

func (f *Flow) findLoginButton(ctx context.Context, drv browser.Driver) (browser.Element, error) {
	for _, st := range f.sel.LoginSubmit {
		matches, err := drv.Locate(ctx, st.Query)
		if err != nil {
			continue
		}
		for _, btn := range matches {
			text, terr := btn.Text(ctx)
			if terr != nil {
				continue
			}
			if st.TextContains != "" && !strings.Contains(text, st.TextContains) {
				continue
			}
			if role, ok, _ := btn.Attr(ctx, "role"); ok && role == "tab" {
				continue
			}
			if _, inTablist, _ := btn.Closest(ctx, `[role="tablist"]`); inTablist {
				continue
			}
			if visible, verr := btn.Visible(ctx); verr != nil || !visible {
				continue
			}
			f.logger.Debug("Found login button.", zap.String("text", strings.TrimSpace(text)))
			return btn, nil
		}
	}
	return nil, fmt.Errorf("%w: login button (candidates were tabs or hidden)", resolver.ErrNotFound)
}

// verifyRedirect polls the URL until it reaches the portal domain without a
// login indicator. While still on the provider's domain it checks for
// textual error indicators and, once after a grace period, for a visible
// challenge iframe.
func (f *Flow) verifyRedirect(ctx context.Context, drv browser.Driver) error {
	f.logger.Debug("Waiting for redirect to portal...")
	delays := f.cfg.Scraper
	challengeChecked := false
	started := time.Now()

	redirected, err := resolver.PollUntil(ctx, delays.LoginRedirect, delays.RedirectPoll, func(ctx context.Context) (bool, error) {
		url, uerr := drv.CurrentURL(ctx)
		if uerr != nil {
			return false, nil
		}
		if f.isPortalURL(url) {
			return true, nil
		}
		if strings.Contains(url, f.sel.IdentityDomain) {
			if f.detectErrorText(ctx, drv) {
				return false, ErrLoginFailed
			}
			// The challenge widget initializes asynchronously; checking
			// too early sees nothing. One check after the grace period.
			if !challengeChecked && time.Since(started) >= delays.ChallengeGrace {
				challengeChecked = true
				if blocked, cerr := f.checkChallenge(ctx, drv); cerr != nil {
					return false, cerr
				} else if blocked {
					return true, nil
				}
			}
		}
		return false, nil
	})
	if err != nil {
		return err
	}
	if !redirected {
		f.logger.Warn("Timed out waiting for redirect.",
			zap.Duration("timeout", delays.LoginRedirect))
	}

	// Non-fatal: the redirect already confirmed progress; some pages keep
	// background requests alive past any idle window.
	if err := drv.WaitIdle(ctx, f.cfg.Network.NetworkIdle); err != nil {
		f.logger.Debug("Network idle wait timed out after redirect.", zap.Error(err))
	}
	_ = drv.Sleep(ctx, delays.SettleExtraLong)

	url, uerr := drv.CurrentURL(ctx)
	if uerr != nil {
		return ErrLoginFailed
	}
	lower := strings.ToLower(url)
	if !strings.Contains(lower, f.sel.LoginIndicator) && !strings.Contains(lower, f.sel.IdentityDomain) {
		_ = drv.Sleep(ctx, delays.AfterLogin)
		return nil
	}

	// Final fallback: dashboard landmarks.
	if _, err := f.res.Resolve(ctx, drv, "dashboard landmark", f.sel.DashboardLandmarks, resolver.StateVisible); err == nil {
		f.logger.Debug("Dashboard landmark found.")
		_ = drv.Sleep(ctx, delays.AfterLogin)
		return nil
	}

	if strings.Contains(url, f.sel.IdentityDomain) && f.detectErrorText(ctx, drv) {
		return ErrLoginFailed
	}
	f.logger.Warn("Login status unclear.", zap.String("url", url))
	return ErrLoginFailed
}

func (f *Flow) isPortalURL(url string) bool {
	return strings.Contains(url, f.sel.PortalDomain) &&
		!strings.Contains(strings.ToLower(url), f.sel.LoginIndicator)
}

// detectErrorText scans the visible body text for the known error keywords,
// which appear in either of two languages depending on the failure path.
func (f *Flow) detectErrorText(ctx context.Context, drv browser.Driver) bool {
	body, err := drv.BodyText(ctx)
	if err != nil || body == "" {
		return false
	}
	lower := strings.ToLower(body)
	for _, keyword := range f.sel.ErrorKeywords {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			f.logger.Debug("Login error keyword detected.", zap.String("keyword", keyword))
			return true
		}
	}
	return false
}

// checkChallenge runs the delayed, one-time challenge check. The iframe may
// be present but hidden, in which case it is not blocking. When it is
// visible, the flow polls briefly for the redirect (a solved challenge
// redirects on its own) and otherwise reports the unresolved challenge.
// Returns (true, nil) when the redirect completed during the poll.
func (f *Flow) checkChallenge(ctx context.Context, drv browser.Driver) (bool, error) {
	frames, err := drv.Locate(ctx, f.sel.ChallengeIframe)
	if err != nil || len(frames) == 0 {
		return false, nil
	}
	visible, verr := frames[0].Visible(ctx)
	if verr != nil || !visible {
		// Present but hidden: not blocking.
		return false, nil
	}

	f.logger.Warn("Visible challenge detected, waiting briefly for it to resolve...")
	delays := f.cfg.Scraper
	resolved, perr := resolver.PollUntil(ctx, delays.ChallengeWait, delays.RedirectPoll, func(ctx context.Context) (bool, error) {
		url, uerr := drv.CurrentURL(ctx)
		if uerr != nil {
			return false, nil
		}
		return strings.Contains(url, f.sel.PortalDomain), nil
	})
	if perr != nil {
		return false, perr
	}
	if resolved {
		f.logger.Info("Challenge resolved, redirect successful.")
		return true, nil
	}
	return false, ErrChallenge
}

// captureDiagnostics records what it can about a failed login: title, error
// keywords in the body, and a screenshot. Its own failures are swallowed;
// diagnostics must never mask the original failure.
func (f *Flow) captureDiagnostics(ctx context.Context, drv browser.Driver) {
	if url, err := drv.CurrentURL(ctx); err == nil {
		f.logger.Debug("Final URL.", zap.String("url", url))
	}
	if title, err := drv.Title(ctx); err == nil {
		f.logger.Debug("Page title.", zap.String("title", title))
		if f.titleIndicatesBlock(ctx, drv) {
			f.logger.Warn("Bot mitigation block page detected during diagnostics.")
		}
	}
	if body, err := drv.BodyText(ctx); err == nil {
		lower := strings.ToLower(body)
		for _, keyword := range f.sel.ErrorKeywords[:min(3, len(f.sel.ErrorKeywords))] {
			if strings.Contains(lower, strings.ToLower(keyword)) {
				f.logger.Debug("Error keyword present on failure page.", zap.String("keyword", keyword))
			}
		}
	}
	path := f.cfg.Scraper.DebugScreenshot
	if path == "" {
		return
	}
	if err := drv.Screenshot(ctx, path); err != nil {
		f.logger.Debug("Could not save diagnostic screenshot.", zap.Error(err))
	} else {
		f.logger.Debug("Diagnostic screenshot saved.", zap.String("path", path))
	}
}
