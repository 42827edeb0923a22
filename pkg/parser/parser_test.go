package parser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	cferrors "github.com/caseflow/caseflow/pkg/errors"
)

const sampleCSV = "case_id,activity,timestamp,resource\n" +
	"C1,Register,2024-01-01T09:00:00Z,alice\n" +
	"C1,Check,2024-01-01T10:00:00Z,bob\n" +
	"C1,Approve,2024-01-01T12:00:00Z,carol\n" +
	"C2,Register,2024-01-02T09:00:00Z,alice\n" +
	"C2,Reject,2024-01-02T09:30:00Z,bob\n"

func TestCSVParser_Basic(t *testing.T) {
	p := NewCSVParser(DefaultConfig())
	log, err := p.Parse(context.Background(), strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if log.CaseCount() != 2 {
		t.Errorf("Expected 2 cases, got %d", log.CaseCount())
	}
	if log.EventCount() != 5 {
		t.Errorf("Expected 5 events, got %d", log.EventCount())
	}

	if log.Traces[0].CaseID != "C1" {
		t.Errorf("Expected first trace C1, got %q", log.Traces[0].CaseID)
	}
	seq := log.Traces[0].ActivitySequence()
	want := []string{"Register", "Check", "Approve"}
	if len(seq) != len(want) {
		t.Fatalf("Expected %d activities, got %d", len(want), len(seq))
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Errorf("Activity %d: expected %q, got %q", i, want[i], seq[i])
		}
	}

	ev := log.Traces[0].Events[0]
	if ev.Resource != "alice" {
		t.Errorf("Expected resource alice, got %q", ev.Resource)
	}
	if ev.Timestamp.Location() != time.UTC {
		t.Error("Expected UTC timestamp")
	}
}

func TestCSVParser_QuotedFields(t *testing.T) {
	csv := "case_id,activity,timestamp\n" +
		"C1,\"Register, intake\",2024-01-01T09:00:00Z\n" +
		"C1,\"Say \"\"hi\"\"\",2024-01-01T10:00:00Z\n"

	p := NewCSVParser(DefaultConfig())
	log, err := p.Parse(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	seq := log.Traces[0].ActivitySequence()
	if seq[0] != "Register, intake" {
		t.Errorf("Unexpected activity: %q", seq[0])
	}
	if seq[1] != `Say "hi"` {
		t.Errorf("Unexpected activity: %q", seq[1])
	}
}

func TestCSVParser_MissingColumn(t *testing.T) {
	csv := "case_id,activity\nC1,Register\n"
	p := NewCSVParser(DefaultConfig())
	_, err := p.Parse(context.Background(), strings.NewReader(csv))
	if !cferrors.IsCode(err, cferrors.CodeMissingColumn) {
		t.Errorf("Expected missing column error, got %v", err)
	}
}

func TestCSVParser_InvalidTimestamp(t *testing.T) {
	csv := "case_id,activity,timestamp\nC1,Register,not-a-time\n"
	p := NewCSVParser(DefaultConfig())
	_, err := p.Parse(context.Background(), strings.NewReader(csv))
	if err == nil {
		t.Fatal("Expected error for invalid timestamp")
	}
	if !errors.Is(err, ErrInvalidTimestamp) {
		t.Errorf("Expected ErrInvalidTimestamp in chain, got %v", err)
	}
}

func TestCSVParser_Empty(t *testing.T) {
	p := NewCSVParser(DefaultConfig())
	_, err := p.Parse(context.Background(), strings.NewReader("case_id,activity,timestamp\n"))
	if !errors.Is(err, ErrEmptyInput) {
		t.Errorf("Expected ErrEmptyInput, got %v", err)
	}
}

func TestCSVParser_ExtraColumnsBecomeAttributes(t *testing.T) {
	csv := "case_id,activity,timestamp,cost\nC1,Register,2024-01-01T09:00:00Z,42\n"
	p := NewCSVParser(DefaultConfig())
	log, err := p.Parse(context.Background(), strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := log.Traces[0].Events[0].Attributes["cost"]; got != "42" {
		t.Errorf("Expected cost attribute 42, got %q", got)
	}
}

const sampleXES = `<?xml version="1.0" encoding="UTF-8"?>
<log xes.version="1.0">
  <trace>
    <string key="concept:name" value="C1"/>
    <event>
      <string key="concept:name" value="Register"/>
      <date key="time:timestamp" value="2024-01-01T09:00:00.000+00:00"/>
      <string key="org:resource" value="alice"/>
    </event>
    <event>
      <string key="concept:name" value="Approve"/>
      <date key="time:timestamp" value="2024-01-01T11:00:00.000+00:00"/>
    </event>
  </trace>
  <trace>
    <string key="concept:name" value="C2"/>
    <event>
      <string key="concept:name" value="Register"/>
      <date key="time:timestamp" value="2024-01-02T09:00:00.000+00:00"/>
    </event>
  </trace>
</log>`

func TestXESParser_Basic(t *testing.T) {
	p := NewXESParser(DefaultConfig())
	log, err := p.Parse(context.Background(), strings.NewReader(sampleXES))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if log.CaseCount() != 2 {
		t.Errorf("Expected 2 traces, got %d", log.CaseCount())
	}
	if log.EventCount() != 3 {
		t.Errorf("Expected 3 events, got %d", log.EventCount())
	}
	if log.Traces[0].CaseID != "C1" {
		t.Errorf("Expected case C1, got %q", log.Traces[0].CaseID)
	}

	ev := log.Traces[0].Events[0]
	if ev.Activity != "Register" {
		t.Errorf("Expected Register, got %q", ev.Activity)
	}
	if ev.Resource != "alice" {
		t.Errorf("Expected resource alice, got %q", ev.Resource)
	}
	wantTS := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	if !ev.Timestamp.Equal(wantTS) {
		t.Errorf("Expected %v, got %v", wantTS, ev.Timestamp)
	}
}

func TestXESParser_NotXES(t *testing.T) {
	p := NewXESParser(DefaultConfig())
	_, err := p.Parse(context.Background(), strings.NewReader("case_id,activity\n"))
	if !errors.Is(err, ErrInvalidXES) {
		t.Errorf("Expected ErrInvalidXES, got %v", err)
	}
}

func TestXESParser_MissingTimestamp(t *testing.T) {
	xes := `<log><trace><string key="concept:name" value="C1"/>` +
		`<event><string key="concept:name" value="Register"/></event>` +
		`</trace></log>`
	p := NewXESParser(DefaultConfig())
	_, err := p.Parse(context.Background(), strings.NewReader(xes))
	if !cferrors.IsCode(err, cferrors.CodeInvalidEvent) {
		t.Errorf("Expected invalid event error, got %v", err)
	}
}

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		"events.csv":     FormatCSV,
		"log.XES":        FormatXES,
		"export.xlsx":    FormatXLSX,
		"notes.txt":      FormatUnknown,
		"no_extension":   FormatUnknown,
		"dir/nested.csv": FormatCSV,
	}
	for path, want := range cases {
		if got := DetectFormat(path); got != want {
			t.Errorf("DetectFormat(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestParseFile_SetsFilename(t *testing.T) {
	log, err := ParseFile(context.Background(), "/tmp/uploads/events.csv",
		strings.NewReader(sampleCSV), DefaultConfig())
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if log.Filename != "events.csv" {
		t.Errorf("Expected filename events.csv, got %q", log.Filename)
	}
}

func TestParseFile_UnsupportedFormat(t *testing.T) {
	_, err := ParseFile(context.Background(), "notes.txt", strings.NewReader(""), DefaultConfig())
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestCSVParser_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewCSVParser(DefaultConfig())
	_, err := p.Parse(ctx, strings.NewReader(sampleCSV))
	if !errors.Is(err, ErrContextCanceled) {
		t.Errorf("Expected ErrContextCanceled, got %v", err)
	}
}
