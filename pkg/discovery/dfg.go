// Package discovery implements directly-follows graph discovery over event
// logs. A DFG counts how often one activity immediately follows another
// within a trace; edges never cross trace boundaries.
package discovery

import (
	"github.com/caseflow/caseflow/internal/model"
)

// Pair is an ordered (source, target) activity pair.
type Pair struct {
	Source string
	Target string
}

// DFG maps each directly-follows pair to its observed frequency.
type DFG map[Pair]int

// Result holds the output of DFG discovery.
type Result struct {
	// DFG contains only pairs observed at least once.
	DFG DFG

	// StartActivities counts, per activity, the traces it opens.
	StartActivities map[string]int

	// EndActivities counts, per activity, the traces it closes.
	EndActivities map[string]int
}

// Discover walks each trace in stored order and aggregates directly-follows
// frequencies plus start and end activity counts. Empty traces contribute
// nothing. The input log is never mutated; an empty log yields empty maps.
func Discover(log *model.EventLog) *Result {
	res := &Result{
		DFG:             make(DFG),
		StartActivities: make(map[string]int),
		EndActivities:   make(map[string]int),
	}

	for i := range log.Traces {
		events := log.Traces[i].Events
		if len(events) == 0 {
			continue
		}

		res.StartActivities[events[0].Activity]++
		res.EndActivities[events[len(events)-1].Activity]++

		for j := 0; j+1 < len(events); j++ {
			res.DFG[Pair{events[j].Activity, events[j+1].Activity}]++
		}
	}

	return res
}
