package parser

import (
	"time"

	"github.com/caseflow/caseflow/internal/model"
)

// logBuilder groups row-shaped events into traces keyed by case id. Traces
// appear in first-seen order and events keep their source order within a
// trace; ordering decisions belong to the analysis layer.
type logBuilder struct {
	index map[string]int
}

func newLogBuilder() *logBuilder {
	return &logBuilder{index: make(map[string]int)}
}

type row struct {
	caseID     string
	activity   string
	timestamp  time.Time
	resource   string
	attributes map[string]string
}

// add appends one event to its trace, creating the trace on first sight.
func (b *logBuilder) add(traces *[]model.Trace, r row) {
	idx, ok := b.index[r.caseID]
	if !ok {
		idx = len(*traces)
		b.index[r.caseID] = idx
		*traces = append(*traces, model.Trace{CaseID: r.caseID})
	}
	(*traces)[idx].Events = append((*traces)[idx].Events, model.Event{
		Activity:   r.activity,
		Timestamp:  r.timestamp,
		Resource:   r.resource,
		Attributes: r.attributes,
	})
}
