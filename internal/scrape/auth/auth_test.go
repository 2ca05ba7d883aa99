// File: internal/scrape/auth/auth_test.go
package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/webtopkit/webtop-cli/internal/browser/browsertest"
	"github.com/webtopkit/webtop-cli/internal/config"
	"github.com/webtopkit/webtop-cli/internal/resolver"
	"github.com/webtopkit/webtop-cli/internal/selectors"
)

const (
	loginURL     = "https://webtop.smartschool.co.il/account/login"
	identityURL  = "https://lgn.edu.gov.il/nidp/wsfed/ep"
	dashboardURL = "https://webtop.smartschool.co.il/dashboard"
)

const portalLoginPage = `
<html><head><title>Webtop</title></head><body>
	<button id="gov-login">הזדהות משרד החינוך</button>
</body></html>`

// identitySelectedPage is the identity provider with the credentials tab
// already active.
const identitySelectedPage = `
<html><head><title>הזדהות לאומית</title></head><body>
	<div role="tablist">
		<button role="tab" aria-selected="true" class="selected">כניסה עם קוד משתמש וסיסמה</button>
		<button role="tab" aria-selected="false">כניסה עם קוד חד פעמי</button>
	</div>
	<form>
		<input type="text" formcontrolname="username" aria-label="קוד המשתמש שלך">
		<input type="password" aria-label="סיסמה">
		<button type="submit">כניסה</button>
	</form>
</body></html>`

// identityUnselectedPage shows the one-time-code tab active: no credential
// fields are visible until the credentials tab is clicked.
const identityUnselectedPage = `
<html><head><title>הזדהות לאומית</title></head><body>
	<div role="tablist">
		<button id="creds-tab" role="tab" aria-selected="false">כניסה עם קוד משתמש וסיסמה</button>
		<button role="tab" aria-selected="true" class="selected">כניסה עם קוד חד פעמי</button>
	</div>
	<form>
		<input type="tel" aria-label="מספר טלפון נייד">
	</form>
</body></html>`

const dashboardPage = `
<html><head><title>Webtop</title></head><body>
	<h1>ריכוז מידע</h1>
	<a href="/Student_Card">כרטיס תלמיד</a>
</body></html>`

func fastConfig() config.Config {
	cfg := config.Default()
	cfg.Portal.Username = "student1"
	cfg.Portal.Password = "hunter2"
	cfg.Scraper.LoginRedirect = 50 * time.Millisecond
	cfg.Scraper.RedirectPoll = time.Millisecond
	cfg.Scraper.ChallengeGrace = 0
	cfg.Scraper.ChallengeWait = 5 * time.Millisecond
	cfg.Scraper.EnablePollInterval = time.Millisecond
	return cfg
}

func newTestFlow(cfg config.Config) *Flow {
	return New(cfg, selectors.Default(), zap.NewNop())
}

// portalScript routes fake clicks: the government entry goes to the identity
// page, the submit button completes or fails the login per the script.
type portalScript struct {
	identityHTML string
	onSubmit     func(d *browsertest.Driver)
}

func (s portalScript) install(d *browsertest.Driver) {
	d.OnClick = func(d *browsertest.Driver, sel *goquery.Selection) error {
		text := sel.Text()
		switch {
		case strings.Contains(text, "הזדהות משרד החינוך"):
			d.SetPage(identityURL, s.identityHTML)
		case strings.Contains(text, "כניסה עם קוד משתמש וסיסמה"):
			d.SetPage(identityURL, identitySelectedPage)
		case strings.Contains(text, "כניסה") && s.onSubmit != nil:
			s.onSubmit(d)
		}
		return nil
	}
}

func TestLoginHappyPath(t *testing.T) {
	drv := browsertest.New(loginURL, portalLoginPage)
	portalScript{
		identityHTML: identitySelectedPage,
		onSubmit:     func(d *browsertest.Driver) { d.SetPage(dashboardURL, dashboardPage) },
	}.install(drv)

	flow := newTestFlow(fastConfig())
	require.NoError(t, flow.Login(context.Background(), drv))

	require.Len(t, drv.Fills, 2)
	assert.Contains(t, drv.Fills[0].AriaLabel, "קוד המשתמש")
	assert.Equal(t, "student1", drv.Fills[0].Value)
	assert.Equal(t, "password", drv.Fills[1].Type)
	assert.Equal(t, "hunter2", drv.Fills[1].Value)
	assert.Empty(t, drv.Screenshots, "no diagnostics on success")
}

func TestLoginClicksCredentialsTabWhenUnselected(t *testing.T) {
	drv := browsertest.New(loginURL, portalLoginPage)
	portalScript{
		identityHTML: identityUnselectedPage,
		onSubmit:     func(d *browsertest.Driver) { d.SetPage(dashboardURL, dashboardPage) },
	}.install(drv)

	flow := newTestFlow(fastConfig())
	require.NoError(t, flow.Login(context.Background(), drv))
	require.Len(t, drv.Fills, 2)
	assert.Equal(t, "student1", drv.Fills[0].Value)
}

func TestLoginWrongPassword(t *testing.T) {
	drv := browsertest.New(loginURL, portalLoginPage)
	portalScript{
		identityHTML: identitySelectedPage,
		onSubmit: func(d *browsertest.Driver) {
			// Stay on the identity page and render the error banner.
			d.SetPage(identityURL, `<html><body><div class="error">שם משתמש או סיסמה לא נכון</div></body></html>`)
		},
	}.install(drv)

	cfg := fastConfig()
	flow := newTestFlow(cfg)
	err := flow.Login(context.Background(), drv)
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Contains(t, drv.Screenshots, cfg.Scraper.DebugScreenshot,
		"failed logins must leave a diagnostic screenshot")
}

func TestLoginUnresolvedChallenge(t *testing.T) {
	drv := browsertest.New(loginURL, portalLoginPage)
	portalScript{
		identityHTML: identitySelectedPage,
		onSubmit: func(d *browsertest.Driver) {
			d.SetPage(identityURL, `<html><body>
				<iframe src="https://www.google.com/recaptcha/api2/anchor" title="reCAPTCHA"></iframe>
			</body></html>`)
		},
	}.install(drv)

	flow := newTestFlow(fastConfig())
	err := flow.Login(context.Background(), drv)
	assert.ErrorIs(t, err, ErrChallenge)
}

func TestLoginHiddenChallengeIsNotBlocking(t *testing.T) {
	drv := browsertest.New(loginURL, portalLoginPage)
	redirected := false
	portalScript{
		identityHTML: identitySelectedPage,
		onSubmit: func(d *browsertest.Driver) {
			// The widget is present but display:none; the redirect lands a
			// moment later.
			d.SetPage(identityURL, `<html><body>
				<iframe src="https://www.google.com/recaptcha/api2/anchor" style="display: none"></iframe>
			</body></html>`)
			go func() {
				time.Sleep(5 * time.Millisecond)
				redirected = true
				d.SetPage(dashboardURL, dashboardPage)
			}()
		},
	}.install(drv)

	flow := newTestFlow(fastConfig())
	require.NoError(t, flow.Login(context.Background(), drv))
	assert.True(t, redirected)
}

func TestLoginBlockPagePersists(t *testing.T) {
	drv := browsertest.New(loginURL, portalLoginPage)
	drv.SetTitle("Attention Required! | Cloudflare")

	flow := newTestFlow(fastConfig())
	err := flow.Login(context.Background(), drv)
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Equal(t, 1, drv.Reloads, "one reload attempt before giving up")
}

func TestLoginMissingUsernameFieldPropagates(t *testing.T) {
	drv := browsertest.New(loginURL, portalLoginPage)
	portalScript{
		// An identity page with the tab selected but no input fields at all.
		identityHTML: `<html><body>
			<div role="tablist">
				<button role="tab" aria-selected="true" class="selected">כניסה עם קוד משתמש וסיסמה</button>
			</div>
		</body></html>`,
	}.install(drv)

	flow := newTestFlow(fastConfig())
	err := flow.Login(context.Background(), drv)
	assert.ErrorIs(t, err, resolver.ErrNotFound,
		"a missing credential field is the caller's signal, not a swallowed failure")
}

func TestFindLoginButtonSkipsTabs(t *testing.T) {
	// Both the tab and the real button carry the login text and neither is
	// a typed submit, so the text query hits the tab first in document
	// order. Only the element outside the tablist qualifies.
	drv := browsertest.New(identityURL, `<html><body>
		<div role="tablist">
			<button role="tab" aria-selected="true">כניסה עם קוד משתמש וסיסמה</button>
		</div>
		<form><button id="real">כניסה</button></form>
	</body></html>`)
	flow := newTestFlow(fastConfig())

	btn, err := flow.findLoginButton(context.Background(), drv)
	require.NoError(t, err)
	id, ok, err := btn.Attr(context.Background(), "id")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "real", id)
}

func TestTabAlreadySelectedSignals(t *testing.T) {
	flow := newTestFlow(fastConfig())

	t.Run("visible username field", func(t *testing.T) {
		drv := browsertest.New(identityURL, identitySelectedPage)
		assert.True(t, flow.tabAlreadySelected(context.Background(), drv))
	})

	t.Run("aria-selected without visible fields", func(t *testing.T) {
		drv := browsertest.New(identityURL, `<html><body>
			<div role="tablist">
				<button role="tab" aria-selected="true">כניסה עם קוד משתמש וסיסמה</button>
			</div>
		</body></html>`)
		assert.True(t, flow.tabAlreadySelected(context.Background(), drv))
	})

	t.Run("other tab active", func(t *testing.T) {
		drv := browsertest.New(identityURL, identityUnselectedPage)
		assert.False(t, flow.tabAlreadySelected(context.Background(), drv))
	})
}
