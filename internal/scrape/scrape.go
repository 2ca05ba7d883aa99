// File: internal/scrape/scrape.go

// Package scrape orchestrates one homework retrieval end to end: session
// acquisition, login, navigation to the homework view, pagination to the
// requested date, and extraction. Each stage lives in its own subpackage;
// this package owns the ordering, the fail-fast checks, and the error
// taxonomy the CLI reports on.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/webtopkit/webtop-cli/internal/browser"
	"github.com/webtopkit/webtop-cli/internal/config"
	"github.com/webtopkit/webtop-cli/internal/dates"
	"github.com/webtopkit/webtop-cli/internal/scrape/auth"
	"github.com/webtopkit/webtop-cli/internal/scrape/extract"
	"github.com/webtopkit/webtop-cli/internal/scrape/navigate"
	"github.com/webtopkit/webtop-cli/internal/scrape/paginate"
	"github.com/webtopkit/webtop-cli/internal/selectors"
)

// ErrMissingCredentials is returned before any navigation happens when the
// portal username or password is absent from the configuration.
var ErrMissingCredentials = errors.New("portal credentials not configured")

// Sessions hands out browser pages. *browser.Manager satisfies it in
// production; tests substitute a provider backed by an in-memory page.
type Sessions interface {
	NewSession(ctx context.Context) (*browser.Session, error)
}

// Result is one completed retrieval.
type Result struct {
	Date    string           `json:"date"`
	Records []extract.Record `json:"records"`
}

// Scraper wires the stages together. Construct it once per process.
type Scraper struct {
	logger *zap.Logger
	cfg    config.Config

	flow *auth.Flow
	nav  *navigate.Navigator
	pag  *paginate.Paginator
	ext  *extract.Extractor
}

// New builds a Scraper over the default selector catalog.
func New(cfg config.Config, logger *zap.Logger) *Scraper {
	return NewWithSelectors(cfg, selectors.Default(), logger)
}

// NewWithSelectors builds a Scraper over an explicit catalog.
func NewWithSelectors(cfg config.Config, sel selectors.Set, logger *zap.Logger) *Scraper {
	log := logger.Named("scrape")
	return &Scraper{
		logger: log,
		cfg:    cfg,
		flow:   auth.New(cfg, sel, logger),
		nav:    navigate.New(cfg, sel, logger),
		pag:    paginate.New(cfg, sel, logger),
		ext:    extract.New(cfg, sel, logger),
	}
}

// Homework retrieves the records for dateStr using a fresh session from the
// manager. The credential check runs before any session or page work; a
// malformed date likewise fails before the browser is touched.
func (s *Scraper) Homework(ctx context.Context, mgr Sessions, dateStr string) (*Result, error) {
	target, err := s.precheck(dateStr)
	if err != nil {
		return nil, err
	}

	session, err := mgr.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire browser session: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			s.logger.Warn("Session close failed.", zap.Error(cerr))
		}
	}()

	return s.run(ctx, session, target)
}

// HomeworkOn runs the retrieval against an already-acquired page. The caller
// keeps ownership of the driver.
func (s *Scraper) HomeworkOn(ctx context.Context, drv browser.Driver, dateStr string) (*Result, error) {
	target, err := s.precheck(dateStr)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, drv, target)
}

func (s *Scraper) precheck(dateStr string) (time.Time, error) {
	if !s.cfg.Portal.HasCredentials() {
		return time.Time{}, ErrMissingCredentials
	}
	target, err := dates.Parse(dateStr)
	if err != nil {
		return time.Time{}, err
	}
	return target, nil
}

func (s *Scraper) run(ctx context.Context, drv browser.Driver, target time.Time) (*Result, error) {
	display := dates.Display(target)
	started := time.Now()
	s.logger.Info("Starting homework retrieval.", zap.String("date", display))

	if err := s.flow.Login(ctx, drv); err != nil {
		return nil, fmt.Errorf("authentication: %w", err)
	}
	if err := s.nav.ToHomework(ctx, drv); err != nil {
		return nil, fmt.Errorf("navigation: %w", err)
	}
	if err := s.pag.ToDate(ctx, drv, target); err != nil {
		// A date the view cannot show yields an empty result, not a
		// failure: a week that lacks the day, a date past the reachable
		// weeks, a page with no headings at all. Failures are reserved for
		// credentials, challenges, and navigation.
		if errors.Is(err, paginate.ErrDateMissingFromWeek) ||
			errors.Is(err, paginate.ErrDateUnreachable) ||
			errors.Is(err, paginate.ErrNoDatesVisible) {
			s.logger.Warn("Date not reachable in view, reporting empty result.",
				zap.String("date", display), zap.Error(err))
			return &Result{Date: display, Records: []extract.Record{}}, nil
		}
		return nil, fmt.Errorf("pagination: %w", err)
	}
	records, err := s.ext.ForDate(ctx, drv, target)
	if err != nil {
		return nil, fmt.Errorf("extraction: %w", err)
	}

	s.logger.Info("Homework retrieval finished.",
		zap.String("date", display),
		zap.Int("records", len(records)),
		zap.Duration("elapsed", time.Since(started)))
	return &Result{Date: display, Records: records}, nil
}
