package core

import (
	"strings"
	"time"
)

// DateLayout is the layout used to read and print calendar dates.
const DateLayout = "2006-01-02"

// NowFunc returns the current time; mockable.
var NowFunc = time.Now

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Day truncates `t` to midnight UTC of its calendar day.
// The zero time is replaced by today.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		t = NowFunc()
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, CleanString(s))
	if err != nil {
		return time.Time{}, NewInputError("invalid date " + s + ", expected YYYY-MM-DD")
	}
	return t, nil
}
