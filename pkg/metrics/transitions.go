package metrics

import (
	"github.com/caseflow/caseflow/internal/model"
)

// Transition is an ordered (source, target) activity pair.
type Transition struct {
	Source string
	Target string
}

// TransitionTimes maps each transition to its observed gap samples in
// seconds. A sample may be negative when the source log recorded events out
// of timestamp order; that is a property of the data, not an error.
type TransitionTimes struct {
	Samples map[Transition][]float64

	// order remembers first observation, so rankings built on top of the
	// samples can break ties deterministically.
	order []Transition
}

// TransitionStat aggregates one transition's samples.
type TransitionStat struct {
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	Count        int     `json:"count"`
	AvgSeconds   float64 `json:"avg_seconds"`
	TotalSeconds float64 `json:"total_seconds"`
}

// CollectTransitionTimes walks each trace's adjacent event pairs in stored
// order and gathers the time gap of every transition.
func CollectTransitionTimes(log *model.EventLog) *TransitionTimes {
	tt := &TransitionTimes{Samples: make(map[Transition][]float64)}

	for i := range log.Traces {
		events := log.Traces[i].Events
		for j := 0; j+1 < len(events); j++ {
			tr := Transition{events[j].Activity, events[j+1].Activity}
			if _, seen := tt.Samples[tr]; !seen {
				tt.order = append(tt.order, tr)
			}
			gap := events[j+1].Timestamp.Sub(events[j].Timestamp).Seconds()
			tt.Samples[tr] = append(tt.Samples[tr], gap)
		}
	}

	return tt
}

// Transitions returns the observed transitions in first-seen order.
func (tt *TransitionTimes) Transitions() []Transition {
	return tt.order
}

// Stat aggregates the samples of one transition. Returns a zero stat when
// the transition was never observed.
func (tt *TransitionTimes) Stat(tr Transition) TransitionStat {
	samples := tt.Samples[tr]
	stat := TransitionStat{Source: tr.Source, Target: tr.Target, Count: len(samples)}
	if len(samples) == 0 {
		return stat
	}
	for _, s := range samples {
		stat.TotalSeconds += s
	}
	stat.AvgSeconds = stat.TotalSeconds / float64(len(samples))
	return stat
}
