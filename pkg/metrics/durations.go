package metrics

import (
	"fmt"
	"strings"
)

// NotApplicable is rendered instead of a negative duration. Negative gaps
// can appear when a source records events out of timestamp order; they are
// tolerated in the raw samples but never shown as formatted durations.
const NotApplicable = "N/A"

// FormatSeconds renders a duration in seconds as a compact human-readable
// string: days, hours, minutes and seconds, each included only when
// non-zero. Zero renders as "0s", negative totals as NotApplicable.
func FormatSeconds(seconds float64) string {
	if seconds < 0 {
		return NotApplicable
	}

	total := int64(seconds)
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	secs := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if secs > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}

	return strings.Join(parts, " ")
}
