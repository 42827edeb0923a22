package metrics

import (
	"math"
	"strings"

	"github.com/caseflow/caseflow/internal/model"
)

// VariantSeparator joins activity names into a variant key. Sequence
// equality is what groups traces: a prefix is a different variant from its
// extension.
const VariantSeparator = " -> "

// TopVariantLimit caps how many variants are surfaced to callers.
const TopVariantLimit = 10

// VariantCount holds one process variant with its frequency.
type VariantCount struct {
	Variant string  `json:"variant"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Variants groups traces by their ordered activity sequence and returns the
// top variants by count, descending, with ties kept in discovery order.
// Percentages are over all traces and rounded to two decimals. The full
// distribution is computed internally; only the head is returned.
func Variants(log *model.EventLog) []VariantCount {
	counts := make(map[string]int)
	var order []string // first-seen order, for stable ties

	for i := range log.Traces {
		key := strings.Join(log.Traces[i].ActivitySequence(), VariantSeparator)
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	total := log.CaseCount()
	if total == 0 {
		return nil
	}

	variants := make([]VariantCount, 0, len(order))
	for _, key := range order {
		variants = append(variants, VariantCount{
			Variant: key,
			Count:   counts[key],
			Percent: roundPercent(float64(counts[key]) / float64(total) * 100),
		})
	}

	// Stable insertion sort keeps discovery order among equal counts.
	for i := 1; i < len(variants); i++ {
		for j := i; j > 0 && variants[j].Count > variants[j-1].Count; j-- {
			variants[j], variants[j-1] = variants[j-1], variants[j]
		}
	}

	if len(variants) > TopVariantLimit {
		variants = variants[:TopVariantLimit]
	}
	return variants
}

func roundPercent(v float64) float64 {
	return math.Round(v*100) / 100
}
