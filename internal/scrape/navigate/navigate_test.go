// File: internal/scrape/navigate/navigate_test.go
package navigate

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/webtopkit/webtop-cli/internal/browser/browsertest"
	"github.com/webtopkit/webtop-cli/internal/config"
	"github.com/webtopkit/webtop-cli/internal/selectors"
)

const (
	dashboardURL   = "https://webtop.smartschool.co.il/dashboard"
	studentCardURL = "https://webtop.smartschool.co.il/Student_Card"
	homeworkURL    = "https://webtop.smartschool.co.il/Student_Card/11"
)

const dashboardPage = `
<html><body>
	<h1>ריכוז מידע</h1>
	<a href="/Student_Card">כרטיס תלמיד</a>
</body></html>`

const studentCardPage = `
<html><body>
	<nav><a href="/Student_Card/11">נושאי שיעור ושיעורי-בית</a></nav>
</body></html>`

const homeworkPage = `
<html><body>
	<mat-card><span role="heading" class="card-title">יום רביעי 21/01/2026</span></mat-card>
</body></html>`

func fastConfig() config.Config {
	cfg := config.Default()
	cfg.Scraper.AfterPageLoad = 0
	return cfg
}

func newTestNavigator() *Navigator {
	return New(fastConfig(), selectors.Default(), zap.NewNop())
}

func TestToHomeworkViaLinks(t *testing.T) {
	drv := browsertest.New(dashboardURL, dashboardPage)
	drv.OnClick = func(d *browsertest.Driver, sel *goquery.Selection) error {
		switch {
		case strings.Contains(sel.Text(), "כרטיס תלמיד"):
			d.SetPage(studentCardURL, studentCardPage)
		case strings.Contains(sel.Text(), "נושאי שיעור"):
			d.SetPage(homeworkURL, homeworkPage)
		}
		return nil
	}

	nav := newTestNavigator()
	require.NoError(t, nav.ToHomework(context.Background(), drv))

	url, err := drv.CurrentURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, homeworkURL, url)
	assert.Empty(t, drv.NavigateCalls, "link path must not fall back to direct navigation")
}

func TestToHomeworkDirectURLFallback(t *testing.T) {
	// A dashboard without the expected links forces the direct URL path.
	drv := browsertest.New(dashboardURL, `<html><body><h1>ריכוז מידע</h1></body></html>`)
	drv.OnNavigate = func(d *browsertest.Driver, url string) {
		if strings.Contains(url, "Student_Card/11") {
			d.SetPage(homeworkURL, homeworkPage)
		}
	}

	nav := newTestNavigator()
	require.NoError(t, nav.ToHomework(context.Background(), drv))
	require.Len(t, drv.NavigateCalls, 1)
	assert.Contains(t, drv.NavigateCalls[0], "Student_Card/11")
}

func TestToHomeworkDetectsExpiredSession(t *testing.T) {
	drv := browsertest.New(dashboardURL, `<html><body></body></html>`)
	drv.OnNavigate = func(d *browsertest.Driver, url string) {
		// The portal bounces the unauthenticated request back to login.
		d.SetPage("https://webtop.smartschool.co.il/account/login?ReturnUrl=%2FStudent_Card%2F11",
			`<html><body><button>הזדהות משרד החינוך</button></body></html>`)
	}

	nav := newTestNavigator()
	err := nav.ToHomework(context.Background(), drv)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestToHomeworkUnreachable(t *testing.T) {
	// Direct navigation lands somewhere that is neither the homework view
	// nor a login page.
	drv := browsertest.New(dashboardURL, `<html><body></body></html>`)
	drv.OnNavigate = func(d *browsertest.Driver, url string) {
		d.SetPage("https://webtop.smartschool.co.il/error", `<html><body>500</body></html>`)
	}

	nav := newTestNavigator()
	err := nav.ToHomework(context.Background(), drv)
	assert.ErrorIs(t, err, ErrHomeworkUnreachable)
}
