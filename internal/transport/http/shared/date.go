package shared

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate reads a calendar date. A full RFC3339 timestamp is accepted and
// truncated to its UTC date, since leave is booked in whole days.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		y, m, d := ts.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(dateLayout, value)
}
