package metrics

import (
	"sort"

	"github.com/caseflow/caseflow/internal/model"
)

// CaseDurationStats summarizes whole-case durations over the traces that
// have at least two events. Traces with fewer events carry no duration and
// are excluded rather than counted as zero. When no trace qualifies every
// field is nil.
type CaseDurationStats struct {
	AvgSeconds    *float64 `json:"avg_seconds"`
	MedianSeconds *float64 `json:"median_seconds"`
	MinSeconds    *float64 `json:"min_seconds"`
	MaxSeconds    *float64 `json:"max_seconds"`

	Avg    string `json:"avg"`
	Median string `json:"median"`
	Min    string `json:"min"`
	Max    string `json:"max"`
}

// CaseDurations computes case duration statistics for the log. A case's
// duration is last event timestamp minus first event timestamp, in seconds,
// walking events in stored order.
func CaseDurations(log *model.EventLog) CaseDurationStats {
	var durations []float64
	for i := range log.Traces {
		t := &log.Traces[i]
		if t.Len() < 2 {
			continue
		}
		d := t.Last().Timestamp.Sub(t.First().Timestamp).Seconds()
		durations = append(durations, d)
	}

	if len(durations) == 0 {
		return CaseDurationStats{}
	}

	sorted := make([]float64, len(durations))
	copy(sorted, durations)
	sort.Float64s(sorted)

	sum := 0.0
	for _, d := range durations {
		sum += d
	}
	avg := sum / float64(len(durations))
	median := medianOf(sorted)
	min := sorted[0]
	max := sorted[len(sorted)-1]

	return CaseDurationStats{
		AvgSeconds:    &avg,
		MedianSeconds: &median,
		MinSeconds:    &min,
		MaxSeconds:    &max,
		Avg:           FormatSeconds(avg),
		Median:        FormatSeconds(median),
		Min:           FormatSeconds(min),
		Max:           FormatSeconds(max),
	}
}

// medianOf returns the median of an already sorted slice: the exact middle
// for odd length, the mean of the two middle values for even length.
func medianOf(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
