package metrics

// BottleneckLimit caps how many ranked transitions are returned.
const BottleneckLimit = 10

// Bottleneck is one ranked transition. The impact score blends frequency
// and severity: count times average duration in hours, so a transition hit
// five times averaging one hour scores exactly 5.0.
type Bottleneck struct {
	Source       string  `json:"source"`
	Target       string  `json:"target"`
	Count        int     `json:"count"`
	AvgSeconds   float64 `json:"avg_seconds"`
	TotalSeconds float64 `json:"total_seconds"`
	AvgDuration  string  `json:"avg_duration"`
	Impact       float64 `json:"impact"`
}

// Bottlenecks ranks transitions by impact score, descending, and returns
// the top entries. Transitions without samples are excluded, not scored as
// zero. Ties keep the order in which transitions were first observed.
func Bottlenecks(tt *TransitionTimes) []Bottleneck {
	var ranked []Bottleneck
	for _, tr := range tt.Transitions() {
		stat := tt.Stat(tr)
		if stat.Count == 0 {
			continue
		}
		ranked = append(ranked, Bottleneck{
			Source:       stat.Source,
			Target:       stat.Target,
			Count:        stat.Count,
			AvgSeconds:   stat.AvgSeconds,
			TotalSeconds: stat.TotalSeconds,
			AvgDuration:  FormatSeconds(stat.AvgSeconds),
			Impact:       float64(stat.Count) * (stat.AvgSeconds / 3600),
		})
	}

	// Stable insertion sort preserves observation order among equal scores.
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].Impact > ranked[j-1].Impact; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}

	if len(ranked) > BottleneckLimit {
		ranked = ranked[:BottleneckLimit]
	}
	return ranked
}
