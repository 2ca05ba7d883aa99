// File: internal/scrape/scrape_test.go
package scrape

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/webtopkit/webtop-cli/internal/browser/browsertest"
	"github.com/webtopkit/webtop-cli/internal/config"
	"github.com/webtopkit/webtop-cli/internal/dates"
)

const (
	loginURL     = "https://webtop.smartschool.co.il/account/login"
	identityURL  = "https://lgn.edu.gov.il/nidp/wsfed/ep"
	dashboardURL = "https://webtop.smartschool.co.il/dashboard"
	homeworkURL  = "https://webtop.smartschool.co.il/Student_Card/11"
)

const portalLoginPage = `
<html><head><title>Webtop</title></head><body>
	<button>הזדהות משרד החינוך</button>
</body></html>`

const identityPage = `
<html><body>
	<div role="tablist">
		<button role="tab" aria-selected="true" class="selected">כניסה עם קוד משתמש וסיסמה</button>
	</div>
	<form>
		<input type="text" aria-label="קוד המשתמש שלך">
		<input type="password" aria-label="סיסמה">
		<button type="submit">כניסה</button>
	</form>
</body></html>`

const dashboardPage = `
<html><body>
	<h1>ריכוז מידע</h1>
	<a href="/Student_Card">כרטיס תלמיד</a>
</body></html>`

const studentCardPage = `
<html><body>
	<nav><a href="/Student_Card/11">נושאי שיעור ושיעורי-בית</a></nav>
</body></html>`

const homeworkWeekPage = `
<html><body>
<app-tool-bar>
	<span><a role="button">שבוע קודם</a></span>
	<span>18/01/2026 - 24/01/2026</span>
	<span><a role="button">שבוע הבא</a></span>
</app-tool-bar>
<mat-card><span role="heading" class="card-title">יום ראשון 18/01/2026</span></mat-card>
<mat-card><span role="heading" class="card-title">יום שני 19/01/2026</span></mat-card>
<mat-card>
	<span role="heading" class="card-title">יום רביעי 21/01/2026</span>
	<table aria-label="שיעורים ליום רביעי 21/01/2026">
		<thead><tr><th>שיעור</th><th>מקצוע</th><th>מורה</th><th>נושא השיעור</th><th>שיעורי בית</th></tr></thead>
		<tbody>
			<tr><td>1</td><td>מתמטיקה</td><td>רחל כהן</td><td>פרק 5</td><td>עמוד 45</td></tr>
			<tr><td>2</td><td>אנגלית</td><td>שרה מזרחי</td><td>---</td><td>אין</td></tr>
		</tbody>
	</table>
</mat-card>
<mat-card><span role="heading" class="card-title">יום חמישי 22/01/2026</span></mat-card>
</body></html>`

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Portal.Username = "student1"
	cfg.Portal.Password = "hunter2"
	cfg.Scraper.LoginRedirect = 50 * time.Millisecond
	cfg.Scraper.RedirectPoll = time.Millisecond
	cfg.Scraper.ChallengeGrace = 0
	cfg.Scraper.ChallengeWait = 5 * time.Millisecond
	cfg.Scraper.EnablePollInterval = time.Millisecond
	cfg.Scraper.AfterPageLoad = 0
	cfg.Scraper.SettleLong = 0
	return cfg
}

// installPortal wires the fake driver with the whole portal: login page,
// identity provider, dashboard, student card and the homework week view.
func installPortal(drv *browsertest.Driver) {
	drv.OnClick = func(d *browsertest.Driver, sel *goquery.Selection) error {
		text := sel.Text()
		switch {
		case strings.Contains(text, "הזדהות משרד החינוך"):
			d.SetPage(identityURL, identityPage)
		case strings.Contains(text, "כרטיס תלמיד"):
			d.SetPage("https://webtop.smartschool.co.il/Student_Card", studentCardPage)
		case strings.Contains(text, "נושאי שיעור"):
			d.SetPage(homeworkURL, homeworkWeekPage)
		case strings.Contains(text, "כניסה"):
			d.SetPage(dashboardURL, dashboardPage)
		}
		return nil
	}
}

func TestHomeworkEndToEnd(t *testing.T) {
	drv := browsertest.New(loginURL, portalLoginPage)
	installPortal(drv)

	scraper := New(testConfig(), zap.NewNop())
	result, err := scraper.HomeworkOn(context.Background(), drv, "21/01/2026")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "21/01/2026", result.Date)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "מתמטיקה", result.Records[0].Subject)
	assert.Equal(t, "פרק 5 | עמוד 45", result.Records[0].Combined)
	assert.Equal(t, "אנגלית", result.Records[1].Subject)
	assert.Empty(t, result.Records[1].Combined)

	// Both credentials were typed into the identity form.
	require.Len(t, drv.Fills, 2)
	assert.Equal(t, "student1", drv.Fills[0].Value)
	assert.Equal(t, "hunter2", drv.Fills[1].Value)
}

func TestHomeworkMissingCredentialsFailsFast(t *testing.T) {
	drv := browsertest.New(loginURL, portalLoginPage)
	installPortal(drv)

	cfg := testConfig()
	cfg.Portal.Username = ""
	scraper := New(cfg, zap.NewNop())

	_, err := scraper.HomeworkOn(context.Background(), drv, "21/01/2026")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Empty(t, drv.NavigateCalls, "no page may be touched without credentials")
	assert.Empty(t, drv.Fills)
}

func TestHomeworkRejectsBadDateBeforeBrowserWork(t *testing.T) {
	drv := browsertest.New(loginURL, portalLoginPage)
	installPortal(drv)

	scraper := New(testConfig(), zap.NewNop())
	_, err := scraper.HomeworkOn(context.Background(), drv, "not-a-date")
	require.Error(t, err)

	var perr *dates.ParseError
	assert.True(t, errors.As(err, &perr))
	assert.Empty(t, drv.NavigateCalls)
}

func TestHomeworkEmptyResultForDayWithoutCard(t *testing.T) {
	drv := browsertest.New(loginURL, portalLoginPage)
	installPortal(drv)

	scraper := New(testConfig(), zap.NewNop())
	// 20/01 is inside the visible week range but has no card.
	result, err := scraper.HomeworkOn(context.Background(), drv, "20/01/2026")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "20/01/2026", result.Date)
	assert.Empty(t, result.Records)
}

func TestHomeworkEmptyResultForUnreachableDate(t *testing.T) {
	drv := browsertest.New(loginURL, portalLoginPage)
	installPortal(drv)

	scraper := New(testConfig(), zap.NewNop())
	// The week controls never move the view off the one visible week, so a
	// date far outside it cannot be shown. That is still "no homework".
	result, err := scraper.HomeworkOn(context.Background(), drv, "02/03/2026")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "02/03/2026", result.Date)
	assert.Empty(t, result.Records)
}

func TestHomeworkAuthFailureSurfaces(t *testing.T) {
	drv := browsertest.New(loginURL, portalLoginPage)
	drv.OnClick = func(d *browsertest.Driver, sel *goquery.Selection) error {
		if strings.Contains(sel.Text(), "הזדהות משרד החינוך") {
			d.SetPage(identityURL, identityPage)
			return nil
		}
		if strings.Contains(sel.Text(), "כניסה") {
			d.SetPage(identityURL, `<html><body><div class="error">שם משתמש או סיסמה לא נכון</div></body></html>`)
		}
		return nil
	}

	scraper := New(testConfig(), zap.NewNop())
	_, err := scraper.HomeworkOn(context.Background(), drv, "21/01/2026")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication")
}
