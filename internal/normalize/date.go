package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ParseDate accepts ISO 8601 dates and well-known locale forms, in UTC civil
// date terms (time-of-day, if present, is discarded). Ambiguous month/day
// orderings (e.g. 03/04/2025, which could be March 4th or April 3rd) are
// rejected rather than guessed: ParseStrict errors on exactly that class of
// input, which is why it is used here instead of dateparse.ParseAny.
func ParseDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}

	if t, err := time.Parse("2006-01-02", trimmed); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t.UTC().Truncate(24 * time.Hour), nil
	}

	t, err := dateparse.ParseStrict(trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("ambiguous or unrecognized date %q: %w", raw, err)
	}

	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

// ISOWeekStart returns the Monday (UTC midnight) of the ISO 8601 week
// containing t, used to key the week_location fingerprint.
func ISOWeekStart(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := t.AddDate(0, 0, -(weekday - 1))
	year, month, day := monday.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
