// File: internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webtopkit/webtop-cli/internal/browser/stealth"
	"github.com/webtopkit/webtop-cli/internal/config"
)

// Session is one browser tab with stealth applied and network tracking
// running. It implements Driver.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	cfg    config.Config

	watcher *netWatcher
	onClose func()

	mu       sync.Mutex
	isClosed bool
}

var _ Driver = (*Session)(nil)

// newSession wraps an initialized chromedp context.
func newSession(ctx context.Context, cancel context.CancelFunc, cfg config.Config, logger *zap.Logger, onClose func()) *Session {
	sessionID := uuid.New().String()
	return &Session{
		id:      sessionID,
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.With(zap.String("session_id", sessionID)),
		cfg:     cfg,
		onClose: onClose,
	}
}

// initialize connects the tab, applies the stealth persona and starts the
// network watcher.
func (s *Session) initialize(ctx context.Context) error {
	if err := chromedp.Run(ctx); err != nil {
		return fmt.Errorf("failed to initialize browser target connection: %w", err)
	}

	s.watcher = newNetWatcher(s.ctx, s.logger)
	if err := s.watcher.Start(); err != nil {
		return fmt.Errorf("failed to start network watcher: %w", err)
	}

	if err := chromedp.Run(ctx, stealth.Apply(stealth.DefaultPersona, s.logger)); err != nil {
		return fmt.Errorf("failed to apply stealth tasks: %w", err)
	}
	return nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Close releases the tab. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.isClosed {
		s.mu.Unlock()
		return nil
	}
	s.isClosed = true
	s.mu.Unlock()

	s.logger.Debug("Closing browser session.")
	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}

// run executes chromedp actions honoring both the session lifetime and the
// caller's context.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads the URL, waits for the DOM to be ready and for the network
// to settle. The idle wait is best-effort; some portal pages keep background
// requests alive indefinitely.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating", zap.String("url", url))

	navTimeout := s.cfg.Network.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 60 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, navTimeout)
	defer cancel()

	if err := s.run(navCtx, chromedp.Navigate(url)); err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation timed out after %s: %w", navTimeout, err)
		}
		return fmt.Errorf("navigation failed: %w", err)
	}
	return s.settle(ctx)
}

// Reload reloads the current page and waits for it to settle.
func (s *Session) Reload(ctx context.Context) error {
	if err := s.run(ctx, chromedp.Reload()); err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	return s.settle(ctx)
}

func (s *Session) settle(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := s.run(readyCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if err := s.WaitIdle(ctx, s.cfg.Network.NetworkIdle); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// CurrentURL returns the page's current location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return url, nil
}

// Title returns the current document title.
func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to read title: %w", err)
	}
	return title, nil
}

// BodyText returns the visible text of the document body.
func (s *Session) BodyText(ctx context.Context) (string, error) {
	var text string
	if err := s.run(ctx, chromedp.Text("body", &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read body text: %w", err)
	}
	return text, nil
}

// Locate returns a handle for every node matching the CSS selector. Zero
// matches is a valid, empty result.
func (s *Session) Locate(ctx context.Context, selector string) ([]Element, error) {
	return s.locateUnder(ctx, selector, "")
}

func (s *Session) locateUnder(ctx context.Context, selector, baseXPath string) ([]Element, error) {
	var xpaths []string
	script := jsCall(jsLocate, selector, baseXPath)
	if err := s.run(ctx, chromedp.Evaluate(script, &xpaths)); err != nil {
		return nil, fmt.Errorf("locate %q failed: %w", selector, err)
	}
	elements := make([]Element, 0, len(xpaths))
	for _, xp := range xpaths {
		if xp == "" {
			continue
		}
		elements = append(elements, &element{session: s, xpath: xp})
	}
	return elements, nil
}

// WaitIdle blocks until network activity quiets down or the timeout elapses.
func (s *Session) WaitIdle(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	idleCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	idleCtx, timeoutCancel := context.WithTimeout(idleCtx, timeout)
	defer timeoutCancel()
	return s.watcher.WaitIdle(idleCtx, 500*time.Millisecond)
}

// WaitURL polls the current URL until match reports true or the timeout
// elapses.
func (s *Session) WaitURL(ctx context.Context, match func(string) bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		url, err := s.CurrentURL(ctx)
		if err != nil {
			return err
		}
		if match(url) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %s waiting for URL, still at %s", timeout, url)
		}
		if err := s.Sleep(ctx, 250*time.Millisecond); err != nil {
			return err
		}
	}
}

// ScrollTo scrolls the viewport to an absolute position; negative y scrolls
// to the bottom of the document.
func (s *Session) ScrollTo(ctx context.Context, x, y float64) error {
	script := fmt.Sprintf(`window.scrollTo(%f, %f);`, x, y)
	if y < 0 {
		script = fmt.Sprintf(`window.scrollTo(%f, document.body.scrollHeight);`, x)
	}
	if err := s.run(ctx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

// Screenshot writes a full-page capture to path.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return fmt.Errorf("screenshot capture failed: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("screenshot write failed: %w", err)
	}
	return nil
}

// Sleep pauses for the duration, honoring cancellation of either the
// caller's context or the session.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return s.ctx.Err()
	case <-time.After(d):
		return nil
	}
}
