// File: internal/dates/dates.go

// Package dates parses user-supplied calendar dates and renders the display
// form the portal prints in its day headings.
package dates

import (
	"fmt"
	"strings"
	"time"
)

// DisplayLayout is the form the portal prints inside day headings.
const DisplayLayout = "02/01/2006"

// inputLayouts are the accepted user input forms, tried in order.
var inputLayouts = []string{
	"02-01-2006", // 21-01-2026
	"02/01/2006", // 21/01/2026
	"2006-01-02", // 2026-01-21
	"2006/01/02", // 2026/01/21
	"02.01.2006", // 21.01.2026
}

// ParseError reports an input that matches no supported format, or a
// syntactically date-like value that is not a real calendar date.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse date %q (supported formats: DD-MM-YYYY, DD/MM/YYYY, YYYY-MM-DD, YYYY/MM/DD, DD.MM.YYYY)", e.Input)
}

// Parse converts a date string in any supported format to a canonical date.
// Whitespace is trimmed. Calendar-invalid values (day 32, month 13) fail.
func Parse(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ParseError{Input: s}
}

// Display renders a date the way the portal prints it.
func Display(t time.Time) string {
	return t.Format(DisplayLayout)
}
