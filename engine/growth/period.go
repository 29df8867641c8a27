package growth

import (
	"fmt"
	"strings"
	"time"
)

var periodLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01",
	"2006",
	"Jan-2006",
	"Jan 2006",
	"January-2006",
	"January 2006",
	"2006 Jan",
	"2006-Jan",
	"01-2006",
	"2006-01-02 15:04:05",
}

// ParsePeriod parses an upstream period identifier into the first instant of
// its month (UTC). Slashes are treated as dashes, so "01/2024" and
// "2024/01" parse as well.
func ParsePeriod(s string) (time.Time, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "/", "-"))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range periodLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return monthStart(t), true
		}
	}
	return time.Time{}, false
}

// QuarterLabel renders the quarter containing t as "Q1-2024".
func QuarterLabel(t time.Time) string {
	return fmt.Sprintf("Q%d-%d", (int(t.Month())-1)/3+1, t.Year())
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func quarterStart(t time.Time) time.Time {
	m := time.Month((int(t.Month())-1)/3*3 + 1)
	return time.Date(t.Year(), m, 1, 0, 0, 0, 0, time.UTC)
}
