package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caseflow/caseflow/pkg/archive"
	"github.com/caseflow/caseflow/pkg/config"
	"github.com/caseflow/caseflow/pkg/session"
)

const sampleCSV = "case_id,activity,timestamp\n" +
	"C1,Register,2024-01-01T09:00:00Z\n" +
	"C1,Check,2024-01-01T10:00:00Z\n" +
	"C1,Approve,2024-01-01T12:00:00Z\n" +
	"C2,Register,2024-01-02T09:00:00Z\n" +
	"C2,Check,2024-01-02T09:30:00Z\n" +
	"C2,Reject,2024-01-02T11:30:00Z\n"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	backend, err := archive.NewLocalBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}
	return NewServer(config.Default(), session.NewMemoryStore(), backend)
}

// uploadCSV posts sampleCSV and returns the session id.
func uploadCSV(t *testing.T, s *Server) string {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "events.csv")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	part.Write([]byte(sampleCSV))
	mw.Close()

	req := httptest.NewRequest("POST", "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Upload returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		SessionID  string `json:"session_id"`
		CaseCount  int    `json:"case_count"`
		EventCount int    `json:"event_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Decode upload response: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("Expected a session id")
	}
	if resp.CaseCount != 2 || resp.EventCount != 6 {
		t.Errorf("Expected 2 cases / 6 events, got %d / %d", resp.CaseCount, resp.EventCount)
	}
	return resp.SessionID
}

func TestUpload(t *testing.T) {
	s := newTestServer(t)
	uploadCSV(t, s)
}

func TestUpload_UnsupportedFormat(t *testing.T) {
	s := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "notes.txt")
	part.Write([]byte("hello"))
	mw.Close()

	req := httptest.NewRequest("POST", "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "E102") {
		t.Errorf("Expected unsupported format code in body: %s", rec.Body.String())
	}
}

func TestDiscover(t *testing.T) {
	s := newTestServer(t)
	id := uploadCSV(t, s)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/api/discover/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Discover returned %d: %s", rec.Code, rec.Body.String())
	}

	var graph struct {
		Nodes []struct {
			Data struct {
				ID        string `json:"id"`
				Frequency int    `json:"frequency"`
			} `json:"data"`
		} `json:"nodes"`
		Edges []struct {
			Data struct {
				Source string `json:"source"`
				Target string `json:"target"`
				Weight int    `json:"weight"`
			} `json:"data"`
		} `json:"edges"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &graph); err != nil {
		t.Fatalf("Decode graph: %v", err)
	}

	// 4 activities plus the synthetic start and end nodes.
	if len(graph.Nodes) != 6 {
		t.Errorf("Expected 6 nodes, got %d", len(graph.Nodes))
	}

	found := false
	for _, e := range graph.Edges {
		if e.Data.Source == "Register" && e.Data.Target == "Check" {
			found = true
			if e.Data.Weight != 2 {
				t.Errorf("Expected Register->Check weight 2, got %d", e.Data.Weight)
			}
		}
	}
	if !found {
		t.Error("Expected Register->Check edge")
	}
}

func TestDiscover_Performance(t *testing.T) {
	s := newTestServer(t)
	id := uploadCSV(t, s)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/api/discover/"+id+"?performance=true", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Discover returned %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "avg_duration_seconds") {
		t.Error("Expected performance annotations on edges")
	}
}

func TestDiscover_UnknownSession(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/api/discover/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "E201") {
		t.Errorf("Expected session code in body: %s", rec.Body.String())
	}
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	id := uploadCSV(t, s)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/api/metrics/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Metrics returned %d", rec.Code)
	}

	var summary struct {
		TotalCases      int `json:"total_cases"`
		TotalEvents     int `json:"total_events"`
		TotalActivities int `json:"total_activities"`
		TopVariants     []struct {
			Variant string  `json:"variant"`
			Count   int     `json:"count"`
			Percent float64 `json:"percent"`
		} `json:"top_variants"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("Decode summary: %v", err)
	}
	if summary.TotalCases != 2 || summary.TotalEvents != 6 || summary.TotalActivities != 4 {
		t.Errorf("Unexpected totals: %+v", summary)
	}
	if len(summary.TopVariants) != 2 {
		t.Fatalf("Expected 2 variants, got %d", len(summary.TopVariants))
	}
	if summary.TopVariants[0].Variant != "Register -> Check -> Approve" &&
		summary.TopVariants[0].Variant != "Register -> Check -> Reject" {
		t.Errorf("Unexpected top variant %q", summary.TopVariants[0].Variant)
	}
	if summary.TopVariants[0].Percent != 50 {
		t.Errorf("Expected 50 percent, got %v", summary.TopVariants[0].Percent)
	}
}

func TestBottlenecks(t *testing.T) {
	s := newTestServer(t)
	id := uploadCSV(t, s)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/api/bottlenecks/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Bottlenecks returned %d", rec.Code)
	}

	var resp struct {
		Bottlenecks []struct {
			Source string  `json:"source"`
			Target string  `json:"target"`
			Impact float64 `json:"impact"`
		} `json:"bottlenecks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Decode bottlenecks: %v", err)
	}
	if len(resp.Bottlenecks) == 0 {
		t.Fatal("Expected bottlenecks")
	}
	for i := 1; i < len(resp.Bottlenecks); i++ {
		if resp.Bottlenecks[i].Impact > resp.Bottlenecks[i-1].Impact {
			t.Error("Bottlenecks not sorted by impact")
		}
	}
}

func TestFilter(t *testing.T) {
	s := newTestServer(t)
	id := uploadCSV(t, s)

	body := strings.NewReader(`{"date_start": "2024-01-02"}`)
	req := httptest.NewRequest("POST", "/api/filter/"+id, body)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Filter returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		CaseCount  int `json:"case_count"`
		EventCount int `json:"event_count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Decode filter response: %v", err)
	}
	if resp.CaseCount != 1 || resp.EventCount != 3 {
		t.Errorf("Expected 1 case / 3 events after filter, got %d / %d", resp.CaseCount, resp.EventCount)
	}

	// Stored session is untouched.
	rec2 := httptest.NewRecorder()
	s.ServeHTTP(rec2, httptest.NewRequest("GET", "/api/metrics/"+id, nil))
	var summary struct {
		TotalCases int `json:"total_cases"`
	}
	json.Unmarshal(rec2.Body.Bytes(), &summary)
	if summary.TotalCases != 2 {
		t.Errorf("Filter mutated the stored log: %d cases", summary.TotalCases)
	}
}

func TestFilter_InvalidDate(t *testing.T) {
	s := newTestServer(t)
	id := uploadCSV(t, s)

	req := httptest.NewRequest("POST", "/api/filter/"+id, strings.NewReader(`{"date_start": "junk"}`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestQuality(t *testing.T) {
	s := newTestServer(t)
	id := uploadCSV(t, s)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/api/quality/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Quality returned %d", rec.Code)
	}

	var resp struct {
		TotalEvents      int `json:"total_events"`
		MissingResources int `json:"missing_resources"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Decode quality report: %v", err)
	}
	if resp.TotalEvents != 6 {
		t.Errorf("Expected 6 events, got %d", resp.TotalEvents)
	}
	// The sample log has no resource column at all.
	if resp.MissingResources != 6 {
		t.Errorf("Expected 6 missing resources, got %d", resp.MissingResources)
	}
}

func TestReport(t *testing.T) {
	s := newTestServer(t)
	id := uploadCSV(t, s)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/api/report/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Report returned %d", rec.Code)
	}

	var report struct {
		SessionID string          `json:"session_id"`
		Filename  string          `json:"filename"`
		Graph     json.RawMessage `json:"graph"`
		Summary   json.RawMessage `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("Decode report: %v", err)
	}
	if report.SessionID != id || report.Filename != "events.csv" {
		t.Errorf("Unexpected report header: %+v", report)
	}
	if len(report.Graph) == 0 || len(report.Summary) == 0 {
		t.Error("Expected graph and summary sections")
	}
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	backend, err := archive.NewLocalBackend(dir)
	if err != nil {
		t.Fatalf("NewLocalBackend failed: %v", err)
	}
	s := NewServer(config.Default(), session.NewMemoryStore(), backend)
	id := uploadCSV(t, s)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("POST", "/api/archive/"+id, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Archive returned %d: %s", rec.Code, rec.Body.String())
	}

	stored, err := backend.Load(context.Background(), id)
	if err != nil {
		t.Fatalf("Load archived report: %v", err)
	}
	if stored.Summary == nil || stored.Summary.TotalCases != 2 {
		t.Errorf("Archived report incomplete: %+v", stored)
	}
}

func TestArchive_NoBackend(t *testing.T) {
	s := NewServer(config.Default(), session.NewMemoryStore(), nil)
	id := uploadCSV(t, s)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("POST", "/api/archive/"+id, nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Health returned %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("Unexpected health body: %s", rec.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/api/upload", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("Expected CORS headers")
	}
}
