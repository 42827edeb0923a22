// Package metrics computes duration, variant, and bottleneck statistics
// over event logs. Every function is a pure pass over the log; nothing here
// mutates its input or keeps state between calls.
package metrics

import (
	"github.com/caseflow/caseflow/internal/model"
)

// Summary holds the log-level metrics surfaced to callers.
type Summary struct {
	TotalCases      int               `json:"total_cases"`
	TotalEvents     int               `json:"total_events"`
	TotalActivities int               `json:"total_activities"`
	CaseDurations   CaseDurationStats `json:"case_duration_stats"`
	TopVariants     []VariantCount    `json:"top_variants"`
}

// Compute assembles the metrics summary for a log: case and event counts,
// distinct activity count, case duration statistics, and the top variants.
func Compute(log *model.EventLog) Summary {
	return Summary{
		TotalCases:      log.CaseCount(),
		TotalEvents:     log.EventCount(),
		TotalActivities: len(log.Activities()),
		CaseDurations:   CaseDurations(log),
		TopVariants:     Variants(log),
	}
}
