package discovery

import (
	"sort"

	"github.com/caseflow/caseflow/internal/model"
	"github.com/caseflow/caseflow/pkg/metrics"
)

// Synthetic node identifiers for the aggregate process entry and exit
// points. Frontends key on these ids.
const (
	StartNodeID = "start_node"
	EndNodeID   = "end_node"
)

// NodeData describes one graph node.
type NodeData struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Frequency int    `json:"frequency"`
	IsStart   bool   `json:"is_start,omitempty"`
	IsEnd     bool   `json:"is_end,omitempty"`
}

// EdgeData describes one graph edge. Duration fields are present only when
// the graph was built with performance annotation.
type EdgeData struct {
	ID           string   `json:"id"`
	Source       string   `json:"source"`
	Target       string   `json:"target"`
	Weight       int      `json:"weight"`
	AvgSeconds   *float64 `json:"avg_duration_seconds,omitempty"`
	TotalSeconds *float64 `json:"total_duration_seconds,omitempty"`
	AvgDuration  string   `json:"avg_duration,omitempty"`
}

// Node and Edge wrap their payloads in a "data" envelope, the record shape
// graph frontends consume directly.
type Node struct {
	Data NodeData `json:"data"`
}

type Edge struct {
	Data EdgeData `json:"data"`
}

// Graph is the rendered discovery result.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// BuildGraph renders a discovery result as a node/edge graph. Every
// activity referenced by the DFG or the start/end maps gets exactly one
// node; two synthetic nodes represent the aggregate entry and exit, wired
// to each start and end activity. When tt is non-nil, DFG edges carry
// average and total transition durations.
func BuildGraph(log *model.EventLog, res *Result, tt *metrics.TransitionTimes) *Graph {
	freq := log.ActivityFrequencies()

	activities := make(map[string]bool)
	for pair := range res.DFG {
		activities[pair.Source] = true
		activities[pair.Target] = true
	}
	for a := range res.StartActivities {
		activities[a] = true
	}
	for a := range res.EndActivities {
		activities[a] = true
	}

	names := make([]string, 0, len(activities))
	for a := range activities {
		names = append(names, a)
	}
	sort.Strings(names)

	totalStarts := 0
	for _, c := range res.StartActivities {
		totalStarts += c
	}
	totalEnds := 0
	for _, c := range res.EndActivities {
		totalEnds += c
	}

	g := &Graph{}
	g.Nodes = append(g.Nodes, Node{Data: NodeData{
		ID:        StartNodeID,
		Label:     "Start",
		Frequency: totalStarts,
	}})
	g.Nodes = append(g.Nodes, Node{Data: NodeData{
		ID:        EndNodeID,
		Label:     "End",
		Frequency: totalEnds,
	}})
	for _, a := range names {
		g.Nodes = append(g.Nodes, Node{Data: NodeData{
			ID:        a,
			Label:     a,
			Frequency: freq[a],
			IsStart:   res.StartActivities[a] > 0,
			IsEnd:     res.EndActivities[a] > 0,
		}})
	}

	// Synthetic edges from the entry node and into the exit node, in
	// sorted activity order for deterministic output.
	for _, a := range sortedKeys(res.StartActivities) {
		g.Edges = append(g.Edges, Edge{Data: EdgeData{
			ID:     StartNodeID + "->" + a,
			Source: StartNodeID,
			Target: a,
			Weight: res.StartActivities[a],
		}})
	}

	pairs := make([]Pair, 0, len(res.DFG))
	for pair := range res.DFG {
		pairs = append(pairs, pair)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Source != pairs[j].Source {
			return pairs[i].Source < pairs[j].Source
		}
		return pairs[i].Target < pairs[j].Target
	})

	for _, pair := range pairs {
		data := EdgeData{
			ID:     pair.Source + "->" + pair.Target,
			Source: pair.Source,
			Target: pair.Target,
			Weight: res.DFG[pair],
		}
		if tt != nil {
			stat := tt.Stat(metrics.Transition{Source: pair.Source, Target: pair.Target})
			if stat.Count > 0 {
				avg := stat.AvgSeconds
				total := stat.TotalSeconds
				data.AvgSeconds = &avg
				data.TotalSeconds = &total
				data.AvgDuration = metrics.FormatSeconds(avg)
			}
		}
		g.Edges = append(g.Edges, Edge{Data: data})
	}

	for _, a := range sortedKeys(res.EndActivities) {
		g.Edges = append(g.Edges, Edge{Data: EdgeData{
			ID:     a + "->" + EndNodeID,
			Source: a,
			Target: EndNodeID,
			Weight: res.EndActivities[a],
		}})
	}

	return g
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
