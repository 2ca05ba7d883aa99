// File: internal/scrape/paginate/paginate_test.go
package paginate

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/webtopkit/webtop-cli/internal/browser/browsertest"
	"github.com/webtopkit/webtop-cli/internal/config"
	"github.com/webtopkit/webtop-cli/internal/selectors"
)

// weekPage renders a homework week: one dated card heading per day plus the
// toolbar with previous/next week arrows.
func weekPage(dayHeadings ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><app-tool-bar>`)
	b.WriteString(`<span><a id="prev" role="button">שבוע קודם</a></span>`)
	b.WriteString(`<span>טווח שבוע</span>`)
	b.WriteString(`<span><a id="next" role="button">שבוע הבא</a></span>`)
	b.WriteString(`</app-tool-bar>`)
	for _, h := range dayHeadings {
		fmt.Fprintf(&b, `<mat-card><span role="heading" class="card-title">%s</span></mat-card>`, h)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func fastConfig() config.Config {
	cfg := config.Default()
	cfg.Scraper.SettleLong = 0
	cfg.Scraper.AfterPageLoad = 0
	return cfg
}

func newTestPaginator() *Paginator {
	return New(fastConfig(), selectors.Default(), zap.NewNop())
}

func day(d, m, y int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// clickedArrow reports whether the clicked node is the prev or next arrow.
func clickedArrow(sel *goquery.Selection) string {
	if id, ok := sel.Attr("id"); ok {
		return id
	}
	return ""
}

func TestDatesOnPage(t *testing.T) {
	drv := browsertest.New("https://webtop.smartschool.co.il/Student_Card/11", weekPage(
		"יום ראשון 18/01/2026",
		"יום שני 19/01/2026",
		"כותרת בלי תאריך",
		"יום רביעי 21/01/2026",
	))
	p := newTestPaginator()

	ds, err := p.DatesOnPage(context.Background(), drv)
	require.NoError(t, err)
	require.Len(t, ds, 3, "undated headings are skipped")
	assert.Equal(t, 18, ds[0].Day())
	assert.Equal(t, 21, ds[2].Day())
}

func TestFindDate(t *testing.T) {
	drv := browsertest.New("https://webtop.smartschool.co.il/Student_Card/11", weekPage(
		"יום ראשון 18/01/2026", "יום רביעי 21/01/2026",
	))
	p := newTestPaginator()

	found, err := p.FindDate(context.Background(), drv, day(21, 1, 2026))
	require.NoError(t, err)
	assert.True(t, found)

	found, err = p.FindDate(context.Background(), drv, day(28, 1, 2026))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestToDateAlreadyVisible(t *testing.T) {
	drv := browsertest.New("https://webtop.smartschool.co.il/Student_Card/11", weekPage(
		"יום ראשון 18/01/2026", "יום רביעי 21/01/2026",
	))
	clicks := 0
	drv.OnClick = func(*browsertest.Driver, *goquery.Selection) error {
		clicks++
		return nil
	}
	p := newTestPaginator()

	require.NoError(t, p.ToDate(context.Background(), drv, day(21, 1, 2026)))
	assert.Zero(t, clicks, "no stepping when the date is on screen")
}

func TestToDateStepsBackward(t *testing.T) {
	current := weekPage("יום ראשון 18/01/2026", "יום חמישי 22/01/2026")
	previous := weekPage("יום ראשון 11/01/2026", "יום שני 12/01/2026")

	drv := browsertest.New("https://webtop.smartschool.co.il/Student_Card/11", current)
	var arrows []string
	drv.OnClick = func(d *browsertest.Driver, sel *goquery.Selection) error {
		arrows = append(arrows, clickedArrow(sel))
		d.SetPage("https://webtop.smartschool.co.il/Student_Card/11", previous)
		return nil
	}
	p := newTestPaginator()

	require.NoError(t, p.ToDate(context.Background(), drv, day(12, 1, 2026)))
	assert.Equal(t, []string{"prev"}, arrows, "a past date steps backward")
}

func TestToDateStepsForward(t *testing.T) {
	current := weekPage("יום ראשון 18/01/2026", "יום חמישי 22/01/2026")
	next := weekPage("יום ראשון 25/01/2026", "יום רביעי 28/01/2026")

	drv := browsertest.New("https://webtop.smartschool.co.il/Student_Card/11", current)
	var arrows []string
	drv.OnClick = func(d *browsertest.Driver, sel *goquery.Selection) error {
		arrows = append(arrows, clickedArrow(sel))
		d.SetPage("https://webtop.smartschool.co.il/Student_Card/11", next)
		return nil
	}
	p := newTestPaginator()

	require.NoError(t, p.ToDate(context.Background(), drv, day(28, 1, 2026)))
	assert.Equal(t, []string{"next"}, arrows, "a future date steps forward")
}

func TestToDateMultiHop(t *testing.T) {
	weeks := []string{
		weekPage("יום ראשון 18/01/2026", "יום חמישי 22/01/2026"),
		weekPage("יום ראשון 25/01/2026", "יום חמישי 29/01/2026"),
		weekPage("יום ראשון 01/02/2026", "יום רביעי 04/02/2026"),
	}
	drv := browsertest.New("https://webtop.smartschool.co.il/Student_Card/11", weeks[0])
	hop := 0
	drv.OnClick = func(d *browsertest.Driver, sel *goquery.Selection) error {
		require.Equal(t, "next", clickedArrow(sel))
		hop++
		d.SetPage("https://webtop.smartschool.co.il/Student_Card/11", weeks[hop])
		return nil
	}
	p := newTestPaginator()

	require.NoError(t, p.ToDate(context.Background(), drv, day(4, 2, 2026)))
	assert.Equal(t, 2, hop)
}

func TestToDateMissingFromItsWeek(t *testing.T) {
	// The range brackets the 21st but only the 19th and the 22nd have cards.
	drv := browsertest.New("https://webtop.smartschool.co.il/Student_Card/11", weekPage(
		"יום שני 19/01/2026", "יום חמישי 22/01/2026",
	))
	p := newTestPaginator()

	err := p.ToDate(context.Background(), drv, day(21, 1, 2026))
	assert.ErrorIs(t, err, ErrDateMissingFromWeek)
}

func TestToDateUnreachable(t *testing.T) {
	// Clicking moves nothing: the same page signature repeats, the walk
	// flips direction once, then stops.
	drv := browsertest.New("https://webtop.smartschool.co.il/Student_Card/11", weekPage(
		"יום ראשון 18/01/2026", "יום חמישי 22/01/2026",
	))
	clicks := 0
	drv.OnClick = func(*browsertest.Driver, *goquery.Selection) error {
		clicks++
		return nil
	}
	p := newTestPaginator()

	err := p.ToDate(context.Background(), drv, day(15, 3, 2026))
	assert.ErrorIs(t, err, ErrDateUnreachable)
	assert.LessOrEqual(t, clicks, 3, "the walk must stop after one direction flip")
}

func TestToDateNoDatesVisible(t *testing.T) {
	drv := browsertest.New("https://webtop.smartschool.co.il/Student_Card/11",
		`<html><body><p>טוען...</p></body></html>`)
	p := newTestPaginator()

	err := p.ToDate(context.Background(), drv, day(21, 1, 2026))
	assert.ErrorIs(t, err, ErrNoDatesVisible)
}

func TestStepRejectsDisabledEdge(t *testing.T) {
	// The previous arrow carries the exhausted-edge class; stepping backward
	// must flip to the only usable direction.
	page := `<html><body><app-tool-bar>
		<span><a id="prev" role="button" class="empty">שבוע קודם</a></span>
		<span>טווח</span>
		<span><a id="next" role="button">שבוע הבא</a></span>
	</app-tool-bar>
	<mat-card><span role="heading" class="card-title">יום ראשון 18/01/2026</span></mat-card>
	</body></html>`

	drv := browsertest.New("https://webtop.smartschool.co.il/Student_Card/11", page)
	var arrows []string
	drv.OnClick = func(d *browsertest.Driver, sel *goquery.Selection) error {
		arrows = append(arrows, clickedArrow(sel))
		return nil
	}
	p := newTestPaginator()

	// Target before the visible range wants backward, but only the forward
	// arrow is usable.
	err := p.ToDate(context.Background(), drv, day(1, 1, 2026))
	assert.ErrorIs(t, err, ErrDateUnreachable)
	for _, a := range arrows {
		assert.Equal(t, "next", a, "the disabled edge must never be clicked")
	}
	assert.NotEmpty(t, arrows)
}
