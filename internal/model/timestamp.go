package model

import (
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a stored timestamp. Values without a zone are UTC.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if strings.HasSuffix(raw, "Z") && !strings.Contains(raw, "T") {
		raw = strings.TrimSuffix(raw, "Z")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// storedLayout has fixed-width fractions so stored values sort chronologically
const storedLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTimestamp renders t the way analytic records store it
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(storedLayout)
}
