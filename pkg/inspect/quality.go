package inspect

import (
	"fmt"
	"sort"
	"time"

	"github.com/caseflow/caseflow/internal/model"
)

// QualityReport summarizes how trustworthy a parsed event log is before
// any analysis runs on it. Parsing already rejects events without an
// activity or timestamp, so completeness here is about the optional fields
// and about consistency problems parsing tolerates.
type QualityReport struct {
	TotalEvents     int `json:"total_events"`
	TotalCases      int `json:"total_cases"`
	TotalActivities int `json:"total_activities"`

	MinTimestamp time.Time `json:"min_timestamp"`
	MaxTimestamp time.Time `json:"max_timestamp"`
	TimeSpan     string    `json:"time_span"`

	// ResourceCompletePct is the share of events carrying a resource.
	ResourceCompletePct float64 `json:"resource_complete_pct"`
	MissingResources    int     `json:"missing_resources"`

	// DuplicateEvents counts repeats of the same case, activity and
	// timestamp. OutOfOrderEvents counts events timestamped before their
	// predecessor within a trace.
	DuplicateEvents  int `json:"duplicate_events"`
	OutOfOrderEvents int `json:"out_of_order_events"`

	AvgEventsPerCase    float64 `json:"avg_events_per_case"`
	MinEventsPerCase    int     `json:"min_events_per_case"`
	MaxEventsPerCase    int     `json:"max_events_per_case"`
	MedianEventsPerCase int     `json:"median_events_per_case"`
	SingleEventCases    int     `json:"single_event_cases"`

	Issues   []QualityIssue `json:"issues"`
	Warnings []string       `json:"warnings"`
}

// QualityIssue describes one detected data quality problem.
type QualityIssue struct {
	Severity     string `json:"severity"`
	Category     string `json:"category"`
	Description  string `json:"description"`
	AffectedRows int    `json:"affected_rows"`
}

// AnalyzeQuality walks the log once and builds a quality report.
func AnalyzeQuality(log *model.EventLog) *QualityReport {
	r := &QualityReport{
		TotalEvents:     log.EventCount(),
		TotalCases:      log.CaseCount(),
		TotalActivities: len(log.Activities()),
	}

	seen := make(map[string]int)
	var caseSizes []int

	for i := range log.Traces {
		t := &log.Traces[i]
		if t.Len() > 0 {
			caseSizes = append(caseSizes, t.Len())
		}
		if t.Len() == 1 {
			r.SingleEventCases++
		}

		var prev time.Time
		for j := range t.Events {
			e := &t.Events[j]

			if e.Resource == "" {
				r.MissingResources++
			}

			if r.MinTimestamp.IsZero() || e.Timestamp.Before(r.MinTimestamp) {
				r.MinTimestamp = e.Timestamp
			}
			if e.Timestamp.After(r.MaxTimestamp) {
				r.MaxTimestamp = e.Timestamp
			}

			if j > 0 && e.Timestamp.Before(prev) {
				r.OutOfOrderEvents++
			}
			prev = e.Timestamp

			key := t.CaseID + "|" + e.Activity + "|" + e.Timestamp.Format(time.RFC3339Nano)
			if seen[key] > 0 {
				r.DuplicateEvents++
			}
			seen[key]++
		}
	}

	if !r.MinTimestamp.IsZero() {
		r.TimeSpan = r.MaxTimestamp.Sub(r.MinTimestamp).String()
	}
	if r.TotalEvents > 0 {
		r.ResourceCompletePct = 100 * float64(r.TotalEvents-r.MissingResources) / float64(r.TotalEvents)
	}

	if len(caseSizes) > 0 {
		sort.Ints(caseSizes)
		total := 0
		for _, n := range caseSizes {
			total += n
		}
		r.MinEventsPerCase = caseSizes[0]
		r.MaxEventsPerCase = caseSizes[len(caseSizes)-1]
		r.AvgEventsPerCase = float64(total) / float64(len(caseSizes))
		r.MedianEventsPerCase = caseSizes[len(caseSizes)/2]
	}

	r.Issues = r.detectIssues()
	r.Warnings = r.warnings()
	return r
}

func (r *QualityReport) detectIssues() []QualityIssue {
	var issues []QualityIssue

	if r.DuplicateEvents > 0 {
		issues = append(issues, QualityIssue{
			Severity:     "warning",
			Category:     "consistency",
			Description:  "duplicate events (same case, activity, timestamp)",
			AffectedRows: r.DuplicateEvents,
		})
	}
	if r.OutOfOrderEvents > 0 {
		issues = append(issues, QualityIssue{
			Severity:     "warning",
			Category:     "consistency",
			Description:  "events timestamped before their predecessor",
			AffectedRows: r.OutOfOrderEvents,
		})
	}
	if r.MissingResources > 0 {
		issues = append(issues, QualityIssue{
			Severity:     "info",
			Category:     "completeness",
			Description:  "events without a resource",
			AffectedRows: r.MissingResources,
		})
	}
	return issues
}

func (r *QualityReport) warnings() []string {
	var warnings []string

	if r.TotalEvents > 0 {
		missing := float64(r.MissingResources) / float64(r.TotalEvents)
		if missing > 0.5 {
			warnings = append(warnings, fmt.Sprintf("%.1f%% of events have no resource assigned", missing*100))
		}
	}
	if r.TotalCases > 0 {
		single := float64(r.SingleEventCases) / float64(r.TotalCases)
		if single > 0.3 {
			warnings = append(warnings, fmt.Sprintf("%.1f%% of cases have only one event; verify the case id mapping", single*100))
		}
	}
	return warnings
}

// String renders a terminal-friendly summary.
func (r *QualityReport) String() string {
	s := fmt.Sprintf(`Data Quality
  Events:     %d
  Cases:      %d
  Activities: %d
  Time range: %s to %s (%s)

  Resource completeness: %.1f%% (%d missing)
  Duplicate events:      %d
  Out-of-order events:   %d
  Events per case:       min=%d max=%d avg=%.1f median=%d
`,
		r.TotalEvents, r.TotalCases, r.TotalActivities,
		r.MinTimestamp.Format(time.RFC3339), r.MaxTimestamp.Format(time.RFC3339), r.TimeSpan,
		r.ResourceCompletePct, r.MissingResources,
		r.DuplicateEvents,
		r.OutOfOrderEvents,
		r.MinEventsPerCase, r.MaxEventsPerCase, r.AvgEventsPerCase, r.MedianEventsPerCase,
	)
	for _, issue := range r.Issues {
		s += fmt.Sprintf("  [%s] %s (%d rows)\n", issue.Severity, issue.Description, issue.AffectedRows)
	}
	for _, w := range r.Warnings {
		s += "  warning: " + w + "\n"
	}
	return s
}
