// File: internal/dates/dates_test.go
package dates

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAcceptedLayouts(t *testing.T) {
	want := time.Date(2026, time.January, 21, 0, 0, 0, 0, time.UTC)

	for _, input := range []string{
		"21-01-2026",
		"21/01/2026",
		"2026-01-21",
		"2026/01/21",
		"21.01.2026",
	} {
		got, err := Parse(input)
		require.NoError(t, err, "input %q", input)
		assert.True(t, got.Equal(want), "input %q parsed to %v", input, got)
	}
}

func TestParseTrimsWhitespace(t *testing.T) {
	got, err := Parse("  21/01/2026  ")
	require.NoError(t, err)
	assert.Equal(t, 21, got.Day())
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "tomorrow", "21-13-2026", "2026", "01/2026"} {
		_, err := Parse(input)
		require.Error(t, err, "input %q", input)

		var perr *ParseError
		assert.True(t, errors.As(err, &perr), "input %q should yield a ParseError", input)
	}
}

func TestDisplay(t *testing.T) {
	d := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "05/01/2026", Display(d))
}

func TestParseDisplayRoundTrip(t *testing.T) {
	got, err := Parse("03/09/2026")
	require.NoError(t, err)
	assert.Equal(t, "03/09/2026", Display(got))
}
