package parser

import "time"

// timestampLayouts are tried in order for every timestamp value. The list
// covers XES exports, ISO 8601 with and without offsets, and the plain
// date-time shapes common in CSV exports.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp parses a timestamp string and normalizes it to UTC, so the
// whole log lives in one timezone-aware representation. Layouts without an
// offset are read as UTC. The configured layout is the final fallback.
func parseTimestamp(value, configured string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	if configured != "" {
		if t, err := time.Parse(configured, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidTimestamp
}
