// Package filter derives restricted event logs from a date window and
// activity allow/deny lists. Filtering always allocates a new log; the
// original is never touched, so repeated what-if filtering from the same
// session is safe.
package filter

import (
	"time"

	"github.com/caseflow/caseflow/internal/model"
)

// Spec describes one filter request. All fields are optional; the zero Spec
// passes every trace through unchanged.
type Spec struct {
	// DateStart and DateEnd bound the first event's timestamp, inclusive.
	// DateEnd is extended to end-of-day, so a bare date keeps the whole day.
	DateStart *time.Time `json:"date_start,omitempty"`
	DateEnd   *time.Time `json:"date_end,omitempty"`

	// Activities keeps only events whose activity is listed (when non-empty).
	Activities []string `json:"activities,omitempty"`

	// ExcludeActivities drops events whose activity is listed.
	ExcludeActivities []string `json:"exclude_activities,omitempty"`
}

// IsZero reports whether the spec constrains nothing.
func (s *Spec) IsZero() bool {
	return s.DateStart == nil && s.DateEnd == nil &&
		len(s.Activities) == 0 && len(s.ExcludeActivities) == 0
}

// hasDateFilter reports whether either date bound is set.
func (s *Spec) hasDateFilter() bool {
	return s.DateStart != nil || s.DateEnd != nil
}

// Apply returns a new event log containing the traces that pass the spec.
// The date filter gates trace inclusion on the first event's timestamp;
// traces with no events are dropped whenever a date bound is active since
// they cannot be evaluated. The activity lists then rebuild each surviving
// trace event-by-event, preserving order and case attributes; a trace left
// empty by that transform is dropped entirely. Failing traces are omitted,
// never repaired.
func Apply(log *model.EventLog, spec *Spec) *model.EventLog {
	out := &model.EventLog{Filename: log.Filename}

	var include, exclude map[string]bool
	if len(spec.Activities) > 0 {
		include = toSet(spec.Activities)
	}
	if len(spec.ExcludeActivities) > 0 {
		exclude = toSet(spec.ExcludeActivities)
	}
	transform := include != nil || exclude != nil

	var end time.Time
	if spec.DateEnd != nil {
		end = endOfDay(*spec.DateEnd)
	}

	for i := range log.Traces {
		t := &log.Traces[i]

		if spec.hasDateFilter() {
			first := t.First()
			if first == nil {
				continue
			}
			if spec.DateStart != nil && first.Timestamp.Before(*spec.DateStart) {
				continue
			}
			if spec.DateEnd != nil && first.Timestamp.After(end) {
				continue
			}
		}

		if !transform {
			out.Traces = append(out.Traces, copyTrace(t, t.Events))
			continue
		}

		var kept []model.Event
		for j := range t.Events {
			a := t.Events[j].Activity
			if include != nil && !include[a] {
				continue
			}
			if exclude != nil && exclude[a] {
				continue
			}
			kept = append(kept, t.Events[j])
		}
		if len(kept) == 0 {
			continue
		}
		out.Traces = append(out.Traces, copyTrace(t, kept))
	}

	return out
}

// copyTrace builds an independently owned trace with the given events and
// the source trace's case-level attributes.
func copyTrace(t *model.Trace, events []model.Event) model.Trace {
	nt := model.Trace{
		CaseID: t.CaseID,
		Events: make([]model.Event, len(events)),
	}
	copy(nt.Events, events)
	if t.Attributes != nil {
		nt.Attributes = make(map[string]string, len(t.Attributes))
		for k, v := range t.Attributes {
			nt.Attributes[k] = v
		}
	}
	return nt
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// endOfDay pushes a timestamp to 23:59:59.999999999 of its day, keeping the
// location it arrived in. Timestamps are normalized to one location at
// ingestion, so no aware/naive branching is needed here.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
