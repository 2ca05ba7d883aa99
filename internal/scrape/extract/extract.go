// File: internal/scrape/extract/extract.go

// Package extract pulls homework records out of the day card for a target
// date. The portal renders the card's table either as a real HTML table or
// as an ARIA pseudo-table of divs and spans, with columns that shift between
// releases, so location runs through a four-method fallback and parsing is
// header-driven with a positional fallback. The located subtree is captured
// once as HTML and parsed offline; no further page round-trips per row.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/webtopkit/webtop-cli/internal/browser"
	"github.com/webtopkit/webtop-cli/internal/config"
	"github.com/webtopkit/webtop-cli/internal/selectors"
)

// FileKind tags an attached file reference.
type FileKind string

const (
	FileLink  FileKind = "link"
	FileImage FileKind = "image"
)

// FileRef is a file linked or embedded in a homework row.
type FileRef struct {
	Kind FileKind `json:"kind"`
	URL  string   `json:"url"`
	Text string   `json:"text,omitempty"`
}

// Record is one lesson row of the day card, normalized. Combined joins the
// lesson topic and the homework text with " | ", dropping the portal's
// nothing-assigned markers; the raw fields keep the cell values as shown.
type Record struct {
	Date          string    `json:"date"`
	Hour          string    `json:"hour,omitempty"`
	Subject       string    `json:"subject"`
	Teacher       string    `json:"teacher,omitempty"`
	Status        string    `json:"status,omitempty"`
	LessonTopic   string    `json:"lesson_topic,omitempty"`
	Homework      string    `json:"homework,omitempty"`
	Combined      string    `json:"combined,omitempty"`
	AttachedFiles []FileRef `json:"attached_files,omitempty"`
}

// Extractor locates and parses the day card for a date.
type Extractor struct {
	logger *zap.Logger
	cfg    config.Config
	sel    selectors.Set
}

func New(cfg config.Config, sel selectors.Set, logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger.Named("extract"), cfg: cfg, sel: sel}
}

// ForDate extracts the records of the given date from the current page. An
// empty slice is legitimate success: a day with no card, no table, or no
// usable rows simply has no homework to report. Only driver failures while
// capturing the subtree surface as errors.
func (e *Extractor) ForDate(ctx context.Context, drv browser.Driver, target time.Time) ([]Record, error) {
	display := target.Format(e.sel.DisplayDateFormat)
	e.logger.Info("Extracting homework.", zap.String("date", display))

	// Cards render lazily below the fold.
	_ = drv.ScrollTo(ctx, 0, -1)
	_ = drv.Sleep(ctx, e.cfg.Scraper.SettleMedium)

	table, ok := e.locateTable(ctx, drv, display)
	if !ok {
		e.logger.Warn("No homework table found for date.", zap.String("date", display))
		return []Record{}, nil
	}
	html, err := table.OuterHTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture table subtree: %w", err)
	}
	records, err := e.parse(html, display)
	if err != nil {
		return nil, err
	}
	e.logger.Info("Extraction complete.",
		zap.String("date", display), zap.Int("records", len(records)))
	return records, nil
}

// locateTable tries four methods in order of specificity: the table labeled
// with the date, the table inside the card whose heading carries the date, a
// scan of all table-like subtrees for one containing the date, and finally a
// scan of all table-like subtrees for an aria-label carrying the date. Every
// method ties the table to the target date; a table nothing associates with
// the date is not extracted, because stamping another day's rows with the
// target date is worse than reporting nothing.
func (e *Extractor) locateTable(ctx context.Context, drv browser.Driver, display string) (browser.Element, bool) {
	// Method 1: aria-label carries the date.
	byLabel := fmt.Sprintf(e.sel.TableByLabel, display)
	if matches, err := drv.Locate(ctx, byLabel); err == nil && len(matches) > 0 {
		e.logger.Debug("Table located by aria-label.", zap.String("query", byLabel))
		return matches[0], true
	}

	// Method 2: date heading -> enclosing card -> its table.
	if headings, err := drv.Locate(ctx, e.sel.DateHeading); err == nil {
		for _, h := range headings {
			text, terr := h.Text(ctx)
			if terr != nil || !strings.Contains(text, display) {
				continue
			}
			card, ok, cerr := h.Closest(ctx, e.sel.Card)
			if cerr != nil || !ok {
				continue
			}
			tables, ferr := card.Find(ctx, e.sel.CardTable)
			if ferr != nil || len(tables) == 0 {
				continue
			}
			e.logger.Debug("Table located via date heading's card.")
			return tables[0], true
		}
	}

	// Method 3: any table-like subtree whose text mentions the date.
	if tables, err := drv.Locate(ctx, e.sel.TableLike); err == nil {
		for _, t := range tables {
			text, terr := t.Text(ctx)
			if terr == nil && strings.Contains(text, display) {
				e.logger.Debug("Table located by content scan.")
				return t, true
			}
		}
		// Method 4: aria-label attribute scan, for pseudo-tables the
		// label query missed.
		for _, t := range tables {
			label, ok, aerr := t.Attr(ctx, "aria-label")
			if aerr == nil && ok && strings.Contains(label, display) {
				e.logger.Debug("Table located by aria-label scan.")
				return t, true
			}
		}
	}
	return nil, false
}

// columns maps logical fields to cell indices, -1 when unknown.
type columns struct {
	hour, subject, teacher, status, topic, homework int
}

// positionalColumns is the portal's historical column order, used when the
// table carries no recognizable header row.
var positionalColumns = columns{hour: 0, subject: 1, teacher: 2, status: 3, topic: 4, homework: 5}

func (e *Extractor) parse(html, display string) ([]Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse table subtree: %w", err)
	}

	cols := e.headerColumns(doc)
	records := make([]Record, 0, 8)
	doc.Find(e.sel.BodyRows).Each(func(_ int, row *goquery.Selection) {
		rec, ok := e.parseRow(row, cols, display)
		if ok {
			records = append(records, rec)
		}
	})
	return records, nil
}

// headerColumns reads the header cells and maps columns by keyword. Missing
// or unrecognizable headers fall back to the historical positions.
func (e *Extractor) headerColumns(doc *goquery.Document) columns {
	cols := columns{hour: -1, subject: -1, teacher: -1, status: -1, topic: -1, homework: -1}
	found := false
	doc.Find(e.sel.HeaderCell).Each(func(i int, cell *goquery.Selection) {
		text := strings.TrimSpace(cell.Text())
		switch {
		case strings.Contains(text, "שיעורי בית"):
			cols.homework, found = i, true
		case strings.Contains(text, "נושא"):
			cols.topic, found = i, true
		case strings.Contains(text, "מקצוע"):
			cols.subject, found = i, true
		case strings.Contains(text, "מורה"):
			cols.teacher, found = i, true
		case strings.Contains(text, "סטטוס") || strings.Contains(text, "נוכחות"):
			cols.status, found = i, true
		case strings.Contains(text, "שיעור") || strings.Contains(text, "שעה"):
			cols.hour, found = i, true
		}
	})
	if !found || cols.subject < 0 {
		return positionalColumns
	}
	return cols
}

// parseRow turns one body row into a Record. Rows whose subject normalizes
// to empty are structural filler and dropped.
func (e *Extractor) parseRow(row *goquery.Selection, cols columns, display string) (Record, bool) {
	cells := row.Find(e.sel.Cells)
	if cells.Length() == 0 {
		return Record{}, false
	}
	cellText := func(i int) string {
		if i < 0 || i >= cells.Length() {
			return ""
		}
		return e.normalize(cells.Eq(i).Text())
	}

	subject := e.subjectText(cells, cols.subject)
	if subject == "" {
		return Record{}, false
	}
	topic := cellText(cols.topic)
	homework := cellText(cols.homework)
	rec := Record{
		Date:          display,
		Hour:          cellText(cols.hour),
		Subject:       subject,
		Teacher:       cellText(cols.teacher),
		Status:        cellText(cols.status),
		LessonTopic:   topic,
		Homework:      homework,
		Combined:      e.combine(topic, homework),
		AttachedFiles: e.attachments(cells),
	}
	return rec, true
}

// subjectText reads the subject cell, preferring a nested button or styled
// link over the raw cell text.
func (e *Extractor) subjectText(cells *goquery.Selection, i int) string {
	if i < 0 || i >= cells.Length() {
		return ""
	}
	cell := cells.Eq(i)
	if btn := cell.Find(e.sel.SubjectButton); btn.Length() > 0 {
		if t := e.normalize(btn.First().Text()); t != "" {
			return t
		}
	}
	return e.normalize(cell.Text())
}

// normalize collapses whitespace in a cell value, strips the portal's inline
// field labels, and reduces its placeholder tokens to the empty string.
func (e *Extractor) normalize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for _, prefix := range e.sel.LabelPrefixes {
		s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
	}
	for _, token := range e.sel.PlaceholderTokens {
		if s == token {
			return ""
		}
	}
	return s
}

// combine joins the topic and homework fields, skipping empty values and the
// portal's "nothing assigned" markers.
func (e *Extractor) combine(topic, homework string) string {
	var parts []string
	for _, v := range []string{topic, homework} {
		if v == "" || v == e.sel.EmptyLessonPlaceholder ||
			v == e.sel.NoHomeworkPlaceholder || v == "--" {
			continue
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, " | ")
}

// attachments collects file references from the row's dedicated attachments
// cell. Rows without one carry no attachments; the other cells hold text and
// navigation controls, not files. Anchors without a usable href (fragment
// stubs, script handlers) are skipped; an image inside a counted anchor is
// part of that link, not a separate reference.
func (e *Extractor) attachments(cells *goquery.Selection) []FileRef {
	if cells.Length() <= positionalColumns.homework+1 {
		return nil
	}
	scope := cells.Eq(positionalColumns.homework + 1)

	var out []FileRef
	scope.Find(e.sel.FileLinks).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || href == "#" || strings.HasPrefix(href, "javascript:") {
			return
		}
		text := strings.TrimSpace(a.Text())
		if text == "" {
			if alt, found := a.Find(e.sel.FileImages).Attr("alt"); found {
				text = strings.TrimSpace(alt)
			}
		}
		out = append(out, FileRef{Kind: FileLink, URL: href, Text: text})
	})
	scope.Find(e.sel.FileImages).Each(func(_ int, img *goquery.Selection) {
		if img.Closest("a").Length() > 0 {
			return
		}
		src, ok := img.Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			return
		}
		alt, _ := img.Attr("alt")
		out = append(out, FileRef{Kind: FileImage, URL: strings.TrimSpace(src), Text: strings.TrimSpace(alt)})
	})
	return out
}
