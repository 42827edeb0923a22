// Package model defines the core event-log data structures for CaseFlow.
package model

import (
	"errors"
	"sort"
	"time"
)

// ErrInvalidEvent is returned when an event is missing its activity name or
// timestamp. Ingestion must reject such events before they reach a trace.
var ErrInvalidEvent = errors.New("model: event missing activity or timestamp")

// Standard attribute keys, following XES naming.
const (
	KeyCaseID   = "case:concept:name"
	KeyActivity = "concept:name"
	KeyResource = "org:resource"
)

// Event is a single process step: an activity name, the moment it was
// recorded, and any additional attributes the source carried. Attributes are
// opaque to the analytics engine and passed through untouched.
type Event struct {
	Activity   string            `json:"activity"`
	Timestamp  time.Time         `json:"timestamp"`
	Resource   string            `json:"resource,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Validate reports whether the event satisfies the log invariant: a
// non-empty activity name and a set timestamp.
func (e *Event) Validate() error {
	if e.Activity == "" || e.Timestamp.IsZero() {
		return ErrInvalidEvent
	}
	return nil
}

// Trace is the ordered event sequence of one case, plus case-level
// attributes. Event order is the order of record in the source log; the
// engine never re-sorts by timestamp.
type Trace struct {
	CaseID     string            `json:"case_id"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Events     []Event           `json:"events"`
}

// EventLog is an ordered collection of traces materialized from one source
// file. Once built by the ingestion layer it is never mutated; every
// analysis reads it, and filtering allocates a fresh log.
type EventLog struct {
	Filename string  `json:"filename,omitempty"`
	Traces   []Trace `json:"traces"`
}

// Len returns the number of events in the trace.
func (t *Trace) Len() int { return len(t.Events) }

// First returns the first event, or nil for an empty trace.
func (t *Trace) First() *Event {
	if len(t.Events) == 0 {
		return nil
	}
	return &t.Events[0]
}

// Last returns the last event, or nil for an empty trace.
func (t *Trace) Last() *Event {
	if len(t.Events) == 0 {
		return nil
	}
	return &t.Events[len(t.Events)-1]
}

// ActivitySequence returns the ordered activity names of the trace.
func (t *Trace) ActivitySequence() []string {
	seq := make([]string, len(t.Events))
	for i := range t.Events {
		seq[i] = t.Events[i].Activity
	}
	return seq
}

// CaseCount returns the number of traces, including empty ones.
func (l *EventLog) CaseCount() int { return len(l.Traces) }

// EventCount returns the total number of events across all traces.
func (l *EventLog) EventCount() int {
	n := 0
	for i := range l.Traces {
		n += len(l.Traces[i].Events)
	}
	return n
}

// Activities returns the sorted set of distinct activity names in the log.
func (l *EventLog) Activities() []string {
	seen := make(map[string]bool)
	for i := range l.Traces {
		for j := range l.Traces[i].Events {
			seen[l.Traces[i].Events[j].Activity] = true
		}
	}
	names := make([]string, 0, len(seen))
	for a := range seen {
		names = append(names, a)
	}
	sort.Strings(names)
	return names
}

// ActivityFrequencies returns how many times each activity occurs across the
// whole log.
func (l *EventLog) ActivityFrequencies() map[string]int {
	freq := make(map[string]int)
	for i := range l.Traces {
		for j := range l.Traces[i].Events {
			freq[l.Traces[i].Events[j].Activity]++
		}
	}
	return freq
}
