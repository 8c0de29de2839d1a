// Package dateparse converts the heterogeneous date representations found in
// bank exports and OCR text into a canonical calendar date. Parsing never
// fails: when no pattern matches, the current date is returned. That
// fallback is a deliberate policy for a human-in-the-loop tool, where a
// wrong-but-visible date beats an aborted import.
package dateparse

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Spreadsheet serial dates count days from 1899-12-30. The off-by-two epoch
// reproduces the 1900 leap-year bug for format compatibility.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Serial values outside this range are treated as ordinary numbers, not
// dates. 20000-60000 spans roughly 1954-2064.
const (
	serialMin = 20000
	serialMax = 60000
)

// now is swappable for tests of the fallback policy.
var now = time.Now

// Parse converts a string, numeric, or time.Time input into a date.
// Unrecognized input falls back to today.
func Parse(input any) time.Time {
	switch v := input.(type) {
	case time.Time:
		if v.IsZero() {
			return today()
		}
		return truncate(v)
	case string:
		return ParseString(v)
	case float64:
		return FromSerial(v)
	case int:
		return FromSerial(float64(v))
	case int64:
		return FromSerial(float64(v))
	default:
		return today()
	}
}

type layoutGroup struct {
	layouts []string
	// Two-digit-year layouts resolve YY as 20YY regardless of Go's
	// 1969-2068 pivot.
	twoDigitYear bool
}

// layout groups tried in the documented order. Within a group the first
// layout that parses wins.
var layoutGroups = []layoutGroup{
	// ISO-ish, year first
	{layouts: []string{"2006-01-02", "2006/1/2", "2006/01/02"}},
	// Day first, 4-digit year
	{layouts: []string{"02-01-2006", "02/01/2006", "2/1/2006", "2-1-2006"}},
	// Month-name forms, 4-digit year
	{layouts: []string{
		"02-Jan-2006", "2-Jan-2006", "02 Jan 2006", "2 Jan 2006",
		"02-January-2006", "2 January 2006", "02 January 2006",
	}},
	// Month-name forms, 2-digit year
	{layouts: []string{"02-Jan-06", "2-Jan-06", "02 Jan 06", "2 Jan 06"}, twoDigitYear: true},
	// Day first, 2-digit year
	{layouts: []string{"02-01-06", "02/01/06", "2/1/06", "2-1-06"}, twoDigitYear: true},
}

// generic fallbacks tried after the structured groups.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02T15:04:05",
}

// ParseString parses a textual date, trying each recognized form in order,
// then a bare-digit spreadsheet serial, then generic fallbacks, then today.
func ParseString(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return today()
	}

	for _, group := range layoutGroups {
		for _, layout := range group.layouts {
			if t, err := time.Parse(layout, s); err == nil {
				t = truncate(t)
				if group.twoDigitYear {
					t = fixCentury(t)
				}
				return t
			}
		}
	}

	// Bare digit strings are spreadsheet serials when plausible.
	if isDigits(s) {
		if serial, err := strconv.ParseFloat(s, 64); err == nil &&
			serial >= serialMin && serial <= serialMax {
			return FromSerial(serial)
		}
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncate(t)
		}
	}

	return today()
}

// FromSerial converts a spreadsheet serial number to a date using the
// 1899-12-30 epoch plus round(serial) days.
func FromSerial(serial float64) time.Time {
	days := math.Round(serial)
	return serialEpoch.Add(time.Duration(days) * 24 * time.Hour)
}

// ISO formats a date in the canonical YYYY-MM-DD form.
func ISO(t time.Time) string {
	return t.Format("2006-01-02")
}

// SameDay reports whether two dates fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// DaysApart returns the absolute whole-day distance between two dates.
func DaysApart(a, b time.Time) int {
	d := truncate(a).Sub(truncate(b)).Hours() / 24
	return int(math.Abs(math.Round(d)))
}

// fixCentury maps two-digit years to 20YY. Go resolves "06" layouts to the
// 1969-2068 window, so anything below 2000 gets shifted forward.
func fixCentury(t time.Time) time.Time {
	if t.Year() >= 1900 && t.Year() < 2000 {
		return t.AddDate(100, 0, 0)
	}
	return t
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func today() time.Time {
	return truncate(now())
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
