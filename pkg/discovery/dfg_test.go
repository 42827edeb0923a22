package discovery

import (
	"testing"
	"time"

	"github.com/caseflow/caseflow/internal/model"
	"github.com/caseflow/caseflow/pkg/metrics"
)

func ts(h int) time.Time {
	return time.Date(2024, 1, 1, h, 0, 0, 0, time.UTC)
}

// Two cases through a small approval process: one approved, one rejected.
func sampleLog() *model.EventLog {
	return &model.EventLog{
		Filename: "orders.csv",
		Traces: []model.Trace{
			{CaseID: "C1", Events: []model.Event{
				{Activity: "Register", Timestamp: ts(9)},
				{Activity: "Check", Timestamp: ts(10)},
				{Activity: "Approve", Timestamp: ts(12)},
			}},
			{CaseID: "C2", Events: []model.Event{
				{Activity: "Register", Timestamp: ts(9)},
				{Activity: "Check", Timestamp: ts(11)},
				{Activity: "Reject", Timestamp: ts(12)},
			}},
		},
	}
}

func TestDiscover(t *testing.T) {
	res := Discover(sampleLog())

	if got := res.DFG[Pair{"Register", "Check"}]; got != 2 {
		t.Errorf("Expected Register->Check frequency 2, got %d", got)
	}
	if got := res.DFG[Pair{"Check", "Approve"}]; got != 1 {
		t.Errorf("Expected Check->Approve frequency 1, got %d", got)
	}
	if got := res.DFG[Pair{"Check", "Reject"}]; got != 1 {
		t.Errorf("Expected Check->Reject frequency 1, got %d", got)
	}
	if len(res.DFG) != 3 {
		t.Errorf("Expected 3 distinct pairs, got %d", len(res.DFG))
	}

	if res.StartActivities["Register"] != 2 {
		t.Errorf("Expected Register to open 2 traces, got %d", res.StartActivities["Register"])
	}
	if res.EndActivities["Approve"] != 1 || res.EndActivities["Reject"] != 1 {
		t.Errorf("Unexpected end activities %v", res.EndActivities)
	}
}

func TestDiscover_SingleEventTrace(t *testing.T) {
	log := &model.EventLog{Traces: []model.Trace{
		{CaseID: "C1", Events: []model.Event{{Activity: "Ping", Timestamp: ts(9)}}},
	}}
	res := Discover(log)

	if len(res.DFG) != 0 {
		t.Errorf("Expected no pairs from a single-event trace, got %v", res.DFG)
	}
	if res.StartActivities["Ping"] != 1 || res.EndActivities["Ping"] != 1 {
		t.Error("A lone event should open and close its trace")
	}
}

func TestDiscover_EmptyTracesAndLog(t *testing.T) {
	res := Discover(&model.EventLog{Traces: []model.Trace{{CaseID: "C1"}}})
	if len(res.DFG) != 0 || len(res.StartActivities) != 0 || len(res.EndActivities) != 0 {
		t.Error("Empty traces must contribute nothing")
	}

	res = Discover(&model.EventLog{})
	if res.DFG == nil || res.StartActivities == nil || res.EndActivities == nil {
		t.Error("Empty log should still yield allocated maps")
	}
}

func TestBuildGraph(t *testing.T) {
	log := sampleLog()
	res := Discover(log)
	g := BuildGraph(log, res, nil)

	// start_node, end_node plus the four activities.
	if len(g.Nodes) != 6 {
		t.Fatalf("Expected 6 nodes, got %d", len(g.Nodes))
	}
	if g.Nodes[0].Data.ID != StartNodeID || g.Nodes[1].Data.ID != EndNodeID {
		t.Errorf("Expected synthetic nodes first, got %q, %q", g.Nodes[0].Data.ID, g.Nodes[1].Data.ID)
	}
	if g.Nodes[0].Data.Frequency != 2 || g.Nodes[1].Data.Frequency != 2 {
		t.Error("Synthetic node frequencies should equal total trace count")
	}

	// Activity nodes are sorted by name.
	wantOrder := []string{"Approve", "Check", "Register", "Reject"}
	for i, want := range wantOrder {
		if got := g.Nodes[i+2].Data.ID; got != want {
			t.Errorf("Node %d: expected %q, got %q", i+2, want, got)
		}
	}

	var register NodeData
	for _, n := range g.Nodes {
		if n.Data.ID == "Register" {
			register = n.Data
		}
	}
	if register.Frequency != 2 || !register.IsStart || register.IsEnd {
		t.Errorf("Unexpected Register node %+v", register)
	}

	// 1 start edge + 3 DFG edges + 2 end edges.
	if len(g.Edges) != 6 {
		t.Fatalf("Expected 6 edges, got %d", len(g.Edges))
	}
	first := g.Edges[0].Data
	if first.ID != "start_node->Register" || first.Weight != 2 {
		t.Errorf("Unexpected first edge %+v", first)
	}
	last := g.Edges[len(g.Edges)-1].Data
	if last.Target != EndNodeID {
		t.Errorf("Expected final edge into end node, got %+v", last)
	}

	for _, e := range g.Edges {
		if e.Data.AvgSeconds != nil || e.Data.AvgDuration != "" {
			t.Errorf("Edge %s carries durations without performance annotation", e.Data.ID)
		}
	}
}

func TestBuildGraph_Performance(t *testing.T) {
	log := sampleLog()
	res := Discover(log)
	tt := metrics.CollectTransitionTimes(log)
	g := BuildGraph(log, res, tt)

	var edge *EdgeData
	for i := range g.Edges {
		if g.Edges[i].Data.ID == "Register->Check" {
			edge = &g.Edges[i].Data
		}
	}
	if edge == nil {
		t.Fatal("Register->Check edge missing")
	}
	if edge.AvgSeconds == nil || edge.TotalSeconds == nil {
		t.Fatal("Expected duration annotations on DFG edge")
	}
	// Gaps of 1h and 2h average to 1.5h.
	if *edge.AvgSeconds != 5400 {
		t.Errorf("Expected avg 5400s, got %v", *edge.AvgSeconds)
	}
	if *edge.TotalSeconds != 10800 {
		t.Errorf("Expected total 10800s, got %v", *edge.TotalSeconds)
	}
	if edge.AvgDuration != "1h 30m" {
		t.Errorf("Expected formatted avg %q, got %q", "1h 30m", edge.AvgDuration)
	}

	// Synthetic edges never carry durations.
	if g.Edges[0].Data.AvgSeconds != nil {
		t.Error("Start edge should not carry durations")
	}
}
