package inspect

import "testing"

func TestDetectColumns_Exact(t *testing.T) {
	cols := []Column{
		{Name: "case_id"}, {Name: "activity"}, {Name: "timestamp"}, {Name: "resource"},
	}
	m := DetectColumns(cols)
	if m.CaseIDColumn != "case_id" || m.ActivityColumn != "activity" ||
		m.TimestampColumn != "timestamp" || m.ResourceColumn != "resource" {
		t.Errorf("Unexpected mapping: %+v", m)
	}
}

func TestDetectColumns_XESNames(t *testing.T) {
	cols := []Column{
		{Name: "case:concept:name"}, {Name: "concept:name"}, {Name: "time:timestamp"},
	}
	m := DetectColumns(cols)
	if m.CaseIDColumn != "case:concept:name" {
		t.Errorf("Expected case:concept:name, got %q", m.CaseIDColumn)
	}
	if m.ActivityColumn != "concept:name" {
		t.Errorf("Expected concept:name, got %q", m.ActivityColumn)
	}
	if m.TimestampColumn != "time:timestamp" {
		t.Errorf("Expected time:timestamp, got %q", m.TimestampColumn)
	}
}

func TestDetectColumns_PartialMatch(t *testing.T) {
	cols := []Column{
		{Name: "Order_ID"}, {Name: "EventAction"}, {Name: "created_at"},
	}
	m := DetectColumns(cols)
	if m.CaseIDColumn != "Order_ID" {
		t.Errorf("Expected Order_ID, got %q", m.CaseIDColumn)
	}
	if m.TimestampColumn != "created_at" {
		t.Errorf("Expected created_at, got %q", m.TimestampColumn)
	}
}

func TestSchema_Complete(t *testing.T) {
	s := &Schema{Columns: []Column{{Name: "case_id"}, {Name: "activity"}, {Name: "timestamp"}}}
	s.Mapping = DetectColumns(s.Columns)
	if !s.Complete() {
		t.Error("Expected complete mapping")
	}

	s2 := &Schema{Columns: []Column{{Name: "foo"}, {Name: "bar"}}}
	s2.Mapping = DetectColumns(s2.Columns)
	if s2.Complete() {
		t.Errorf("Expected incomplete mapping, got %+v", s2.Mapping)
	}
}
