package importer

// convert.go turns raw spreadsheet cells into typed values.
//
// Spreadsheet data arrives in many shapes:
//   - Multiple date formats (US, EU, ISO, month names, Excel two-digit years)
//   - Currency symbols, thousands separators and accounting negatives in numbers
//   - Various boolean spellings (yes/no, true/false, on/off, 1/0)
//   - Excel formula prefixes (="value") and stray quotes
//
// Each Parse* function reports ok=false rather than guessing.

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ISODate is the layout dates are normalized to.
const ISODate = "2006-01-02"

// TwoDigitYearPivot controls two-digit years: a year that would land more than
// this many years after the current one is moved back a century.
var TwoDigitYearPivot = 20

var (
	fourDigitYearLayouts = []string{
		ISODate, "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "2 January 2006",
		"2006-01-02T15:04:05Z07:00", "2006-01-02 15:04:05",
		"20060102",
	}
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "01-02-06", "1.2.06", "01.02.06",
	}
)

// CleanCell strips common spreadsheet artifacts: surrounding whitespace,
// an Excel formula prefix (="..." or =...), and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// ParseNumber parses a numeric cell, accepting currency symbols, thousands
// separators and accounting-style negatives such as "(1,234.50)".
func ParseNumber(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}
	if negative {
		if strings.HasPrefix(s, "-") {
			return decimal.Decimal{}, false
		}
		s = "-" + s
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ParseDate parses a date cell in any supported layout.
func ParseDate(s string) (time.Time, bool) {
	return parseDateAt(s, time.Now())
}

func parseDateAt(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), true
		}
	}

	pivotYear := now.Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return truncateDay(t), true
		}
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseBool accepts true/false, yes/no, y/n, t/f, on/off and 1/0.
func ParseBool(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1", "on":
		return true, true
	case "false", "f", "no", "n", "0", "off":
		return false, true
	}
	return false, false
}

// splitList splits a multi-value cell on commas, semicolons or pipes and
// drops empty items.
func splitList(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '|'
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitRange splits a date-range cell into its two ends. Supported
// separators are "~", " to " and "..".
func splitRange(s string) (start, end string, ok bool) {
	for _, sep := range []string{"~", " to ", ".."} {
		if i := strings.Index(s, sep); i >= 0 {
			return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+len(sep):]), true
		}
	}
	return "", "", false
}
