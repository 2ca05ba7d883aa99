// File: internal/selectors/selectors.go

// Package selectors centralizes every lookup chain and text pattern the
// scraper uses against the portal and its identity provider. The portal UI
// mixes Hebrew and English and renders the same control with different
// markup across versions, which is why nearly every entry is an ordered
// fallback chain rather than a single selector. The Set is built once and
// passed into component constructors; tests override individual chains.
package selectors

import "github.com/webtopkit/webtop-cli/internal/resolver"

// Set is the full selector catalog.
type Set struct {
	// Authentication.
	CookieConsent []resolver.Strategy
	IdentityEntry []resolver.Strategy
	Username      []resolver.Strategy
	Password      []resolver.Strategy
	LoginSubmit   []resolver.Strategy

	TabRole             string
	UsernameTabText     string
	UsernameTabFullText string
	MobileTabExclude    string
	PasswordLabel       string
	LoginButtonText     string

	// Navigation.
	StudentCard  []resolver.Strategy
	HomeworkLink []resolver.Strategy

	StudentCardURLPart string
	HomeworkURLPart    string

	DashboardLandmarks []resolver.Strategy

	// Extraction.
	DateHeading   string
	DateRegex     string
	TableLike     string
	TableByLabel  string // format arg: display date
	Card          string
	CardTable     string
	BodyRows      string
	HeaderCell    string
	Cells         string
	SubjectButton string
	FileLinks     string
	FileImages    string

	// Pagination.
	Toolbar  string
	NextWeek []resolver.Strategy
	PrevWeek []resolver.Strategy

	// Challenge and error detection.
	ErrorKeywords   []string
	ChallengeIframe string
	BlockTitleParts []string

	// URL classification.
	PortalDomain   string
	IdentityDomain string
	LoginIndicator string

	// Placeholders.
	NoHomeworkPlaceholder  string
	EmptyLessonPlaceholder string
	PlaceholderTokens      []string
	LabelPrefixes          []string

	// Date formats.
	DisplayDateFormat string
}

// Default returns the catalog for the production portal.
func Default() Set {
	return Set{
		CookieConsent: []resolver.Strategy{
			resolver.CssText("button", "אשר cookies"),
		},
		IdentityEntry: []resolver.Strategy{
			resolver.CssText("button", "הזדהות משרד החינוך"),
			resolver.CssText("a", "הזדהות משרד החינוך"),
		},
		Username: []resolver.Strategy{
			resolver.Css(`input[aria-label*="קוד המשתמש"]`),
			resolver.Css(`input[type="text"][formcontrolname*="username"]`),
			resolver.Css(`input[type="text"]`),
		},
		Password: []resolver.Strategy{
			resolver.Css(`input[type="password"]`),
			resolver.Css(`input[aria-label*="סיסמה"]`),
		},
		LoginSubmit: []resolver.Strategy{
			resolver.CssText(`button[type="submit"]`, "כניסה"),
			resolver.CssText("button", "כניסה"),
			resolver.CssText(`form button[type="submit"]`, ""),
		},

		TabRole:             `[role="tab"]`,
		UsernameTabText:     "קוד משתמש וסיסמה",
		UsernameTabFullText: "כניסה עם קוד משתמש וסיסמה",
		MobileTabExclude:    "חד פעמי",
		PasswordLabel:       "סיסמה",
		LoginButtonText:     "כניסה",

		StudentCard: []resolver.Strategy{
			resolver.CssText(`a[href*="Student_Card"]`, "כרטיס תלמיד"),
			resolver.CssText("a", "כרטיס תלמיד"),
		},
		HomeworkLink: []resolver.Strategy{
			resolver.CssText(`a[href*="Student_Card/11"]`, "נושאי שיעור ושיעורי-בית"),
			resolver.Css(`a[href*="Student_Card/11"]`),
			resolver.CssText("a", "נושאי שיעור ושיעורי-בית"),
			resolver.Css(`nav a[href*="Student_Card/11"]`),
		},

		StudentCardURLPart: "Student_Card",
		HomeworkURLPart:    "Student_Card/11",

		DashboardLandmarks: []resolver.Strategy{
			resolver.CssText("h1, h2, span[role='heading']", "ריכוז מידע"),
			resolver.CssText("a", "כרטיס תלמיד"),
			resolver.CssText("a", "תיבת הודעות"),
		},

		// The page titles each day with span[role=heading].card-title, not h2,
		// but older versions used plain h2.
		DateHeading:   `span[role="heading"].card-title, span[role="heading"], h2`,
		DateRegex:     `(\d{2})/(\d{2})/(\d{4})`,
		TableLike:     `table, div[role="table"]`,
		TableByLabel:  `[aria-label*="%s"]`,
		Card:          `mat-card, .card`,
		CardTable:     `div[role="table"], table`,
		BodyRows:      `tbody tr, div[role="row"].lesson-homework, div[role="rowgroup"] > div[role="row"].lesson-homework`,
		HeaderCell:    `th, [role="columnheader"]`,
		Cells:         `td, span[role="cell"]`,
		SubjectButton: `button, a[role="button"], a.link-text`,
		FileLinks:     "a",
		FileImages:    "img",

		Toolbar: "app-tool-bar",
		NextWeek: []resolver.Strategy{
			// Portal-specific toolbar position, most specific first.
			resolver.Css(`#main app-multi-cards-view app-lesson-homework app-lesson-homework-view app-tool-bar span:nth-child(3) > a`),
			resolver.Css(`app-tool-bar span:nth-child(3) > a`),
			resolver.CssText(`a[role="button"]`, "שבוע הבא"),
			resolver.Css(`a[role="button"]:has(mat-icon[svgicon="navigate_next"])`),
			resolver.Css(`a:has(mat-icon[svgicon="navigate_next"])`),
			resolver.CssText("button", "הבא"),
			resolver.CssText("button", "Next"),
			resolver.CssText("a", "הבא"),
			resolver.CssText("a", "Next"),
			resolver.Css(`[aria-label*="הבא"]`),
			resolver.Css(`[aria-label*="Next"]`),
			resolver.Css(`.pagination button:last-child`),
			resolver.Css(`.pagination a:last-child`),
			resolver.Css(`[class*="next"]`),
		},
		PrevWeek: []resolver.Strategy{
			resolver.Css(`#main app-multi-cards-view app-lesson-homework app-lesson-homework-view app-tool-bar span:nth-child(1) > a`),
			resolver.Css(`app-tool-bar span:nth-child(1) > a`),
			resolver.CssText(`a[role="button"]`, "שבוע קודם"),
			resolver.Css(`a[role="button"]:has(mat-icon[svgicon="navigate_before"])`),
			resolver.Css(`a:has(mat-icon[svgicon="navigate_before"])`),
			resolver.CssText("button", "הקודם"),
			resolver.CssText("button", "Previous"),
			resolver.CssText("button", "קודם"),
			resolver.CssText("a", "הקודם"),
			resolver.CssText("a", "Previous"),
			resolver.CssText("a", "קודם"),
			resolver.Css(`[aria-label*="הקודם"]`),
			resolver.Css(`[aria-label*="Previous"]`),
			resolver.Css(`.pagination button:first-child`),
			resolver.Css(`.pagination a:first-child`),
			resolver.Css(`[class*="prev"]`),
			resolver.Css(`[class*="previous"]`),
		},

		ErrorKeywords:   []string{"שגיאה", "error", "לא נכון", "לא תקין", "נכשל", "כושל"},
		ChallengeIframe: `iframe[src*="recaptcha"], iframe[title*="reCAPTCHA"]`,
		BlockTitleParts: []string{"could not be satisfied", "cloudflare"},

		PortalDomain:   "webtop.smartschool.co.il",
		IdentityDomain: "lgn.edu.gov.il",
		LoginIndicator: "login",

		NoHomeworkPlaceholder:  "אין",
		EmptyLessonPlaceholder: "---",
		PlaceholderTokens:      []string{"-`", "-", "`", "--"},
		LabelPrefixes:          []string{"נושא שיעור:", "שיעורי בית:"},

		DisplayDateFormat: "02/01/2006",
	}
}
