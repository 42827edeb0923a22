package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caseflow/caseflow/pkg/discovery"
	"github.com/caseflow/caseflow/pkg/metrics"
)

func testReport(sessionID string) *Report {
	return &Report{
		SessionID: sessionID,
		Filename:  "events.csv",
		CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Graph: &discovery.Graph{
			Nodes: []discovery.Node{{Data: discovery.NodeData{ID: "Register", Label: "Register", Frequency: 2}}},
		},
		Summary: &metrics.Summary{TotalCases: 2, TotalEvents: 5, TotalActivities: 3},
	}
}

func TestLocalBackend_RoundTrip(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}

	ctx := context.Background()
	r := testReport("sess-1")
	if err := b.Save(ctx, r); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := b.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.SessionID != "sess-1" || got.Filename != "events.csv" {
		t.Errorf("Unexpected report: %+v", got)
	}
	if got.Summary.TotalCases != 2 {
		t.Errorf("Expected 2 cases, got %d", got.Summary.TotalCases)
	}
	if len(got.Graph.Nodes) != 1 || got.Graph.Nodes[0].Data.ID != "Register" {
		t.Errorf("Graph did not survive round trip: %+v", got.Graph)
	}
}

func TestLocalBackend_LoadMissing(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}

	_, err = b.Load(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLocalBackend_List(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}

	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := b.Save(ctx, testReport(id)); err != nil {
			t.Fatalf("Save %s failed: %v", id, err)
		}
	}

	ids, err := b.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("Expected 2 reports, got %d: %v", len(ids), ids)
	}
}

func TestLocalBackend_Delete(t *testing.T) {
	b, err := NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}

	ctx := context.Background()
	if err := b.Save(ctx, testReport("x")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := b.Delete(ctx, "x"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := b.Load(ctx, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	// Deleting a missing report is a no-op.
	if err := b.Delete(ctx, "x"); err != nil {
		t.Errorf("Second delete failed: %v", err)
	}
}
