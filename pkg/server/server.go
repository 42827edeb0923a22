// Package server provides the HTTP API for event log analysis.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/caseflow/caseflow/internal/model"
	"github.com/caseflow/caseflow/pkg/archive"
	"github.com/caseflow/caseflow/pkg/config"
	"github.com/caseflow/caseflow/pkg/discovery"
	cferrors "github.com/caseflow/caseflow/pkg/errors"
	"github.com/caseflow/caseflow/pkg/filter"
	"github.com/caseflow/caseflow/pkg/inspect"
	"github.com/caseflow/caseflow/pkg/metrics"
	"github.com/caseflow/caseflow/pkg/parser"
	"github.com/caseflow/caseflow/pkg/session"
)

// Server handles HTTP requests for the analysis API.
type Server struct {
	cfg       config.ServerConfig
	parserCfg parser.Config
	sessions  session.Store
	archive   archive.Backend // nil when no backend is configured
	mux       *http.ServeMux
}

// NewServer creates a new HTTP server. The archive backend may be nil, in
// which case POST /api/archive reports an error.
func NewServer(cfg *config.Config, sessions session.Store, backend archive.Backend) *Server {
	s := &Server{
		cfg: cfg.Server,
		parserCfg: parser.Config{
			CaseIDColumn:    cfg.Parser.CaseIDColumn,
			ActivityColumn:  cfg.Parser.ActivityColumn,
			TimestampColumn: cfg.Parser.TimestampColumn,
			ResourceColumn:  cfg.Parser.ResourceColumn,
			TimestampFormat: cfg.Parser.TimestampFormat,
		},
		sessions: sessions,
		archive:  backend,
		mux:      http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures HTTP handlers.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/upload", s.handleUpload)
	s.mux.HandleFunc("/api/discover/", s.handleDiscover)
	s.mux.HandleFunc("/api/metrics/", s.handleMetrics)
	s.mux.HandleFunc("/api/bottlenecks/", s.handleBottlenecks)
	s.mux.HandleFunc("/api/filter/", s.handleFilter)
	s.mux.HandleFunc("/api/quality/", s.handleQuality)
	s.mux.HandleFunc("/api/report/", s.handleReport)
	s.mux.HandleFunc("/api/archive/", s.handleArchive)
	s.mux.HandleFunc("/api/sessions", s.handleSessions)
	s.mux.HandleFunc("/api/health", s.handleHealth)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// CORS headers for browser clients
	origin := "*"
	if len(s.cfg.CORSOrigins) > 0 {
		origin = s.cfg.CORSOrigins[0]
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	s.mux.ServeHTTP(w, r)
}

// handleUpload receives an event log file, parses it, and registers a
// session. Column mapping can be overridden via multipart form fields.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	maxUpload := s.cfg.MaxUploadSize
	if maxUpload <= 0 {
		maxUpload = 500 << 20
	}
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		jsonError(w, "Failed to parse upload", string(cferrors.CodeParseFailed), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "No file provided", string(cferrors.CodeParseFailed), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if parser.DetectFormat(header.Filename) == parser.FormatUnknown {
		jsonError(w, "Unsupported file format", string(cferrors.CodeUnsupportedFormat), http.StatusBadRequest)
		return
	}

	cfg := s.parserCfg
	if v := r.FormValue("case_id_column"); v != "" {
		cfg.CaseIDColumn = v
	}
	if v := r.FormValue("activity_column"); v != "" {
		cfg.ActivityColumn = v
	}
	if v := r.FormValue("timestamp_column"); v != "" {
		cfg.TimestampColumn = v
	}
	if v := r.FormValue("resource_column"); v != "" {
		cfg.ResourceColumn = v
	}

	log, err := parser.ParseFile(r.Context(), header.Filename, file, cfg)
	if err != nil {
		jsonError(w, err.Error(), string(cferrors.GetCode(err)), http.StatusBadRequest)
		return
	}

	id, err := session.Register(s.sessions, log)
	if err != nil {
		jsonError(w, err.Error(), string(cferrors.GetCode(err)), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]interface{}{
		"session_id":  id,
		"filename":    log.Filename,
		"case_count":  log.CaseCount(),
		"event_count": log.EventCount(),
		"activities":  log.Activities(),
	})
}

// handleDiscover returns the directly-follows graph for a session. With
// ?performance=true, edges carry transition timing annotations.
func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	log, ok := s.sessionFromPath(w, r, "/api/discover/")
	if !ok {
		return
	}

	var tt *metrics.TransitionTimes
	if r.URL.Query().Get("performance") == "true" {
		tt = metrics.CollectTransitionTimes(log)
	}

	res := discovery.Discover(log)
	graph := discovery.BuildGraph(log, res, tt)
	jsonResponse(w, graph)
}

// handleMetrics returns the summary statistics for a session.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	log, ok := s.sessionFromPath(w, r, "/api/metrics/")
	if !ok {
		return
	}
	jsonResponse(w, metrics.Compute(log))
}

// handleBottlenecks returns the ranked transition bottlenecks for a session.
func (s *Server) handleBottlenecks(w http.ResponseWriter, r *http.Request) {
	log, ok := s.sessionFromPath(w, r, "/api/bottlenecks/")
	if !ok {
		return
	}

	tt := metrics.CollectTransitionTimes(log)
	jsonResponse(w, map[string]interface{}{
		"bottlenecks": metrics.Bottlenecks(tt),
	})
}

// handleQuality returns the data quality report for a session's log.
func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	log, ok := s.sessionFromPath(w, r, "/api/quality/")
	if !ok {
		return
	}
	jsonResponse(w, inspect.AnalyzeQuality(log))
}

// filterRequest is the JSON body of POST /api/filter/{id}. Dates accept
// "2006-01-02" or RFC 3339.
type filterRequest struct {
	DateStart         string   `json:"date_start"`
	DateEnd           string   `json:"date_end"`
	Activities        []string `json:"activities"`
	ExcludeActivities []string `json:"exclude_activities"`
}

// handleFilter applies a filter to a session's log and returns the analysis
// of the filtered view. The stored log is never modified.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	log, ok := s.sessionFromPath(w, r, "/api/filter/")
	if !ok {
		return
	}

	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid filter request", string(cferrors.CodeInvalidFilter), http.StatusBadRequest)
		return
	}

	spec, err := req.toSpec()
	if err != nil {
		jsonError(w, err.Error(), string(cferrors.CodeInvalidFilter), http.StatusBadRequest)
		return
	}

	filtered := filter.Apply(log, &spec)
	res := discovery.Discover(filtered)

	jsonResponse(w, map[string]interface{}{
		"case_count":  filtered.CaseCount(),
		"event_count": filtered.EventCount(),
		"graph":       discovery.BuildGraph(filtered, res, nil),
		"metrics":     metrics.Compute(filtered),
	})
}

func (req *filterRequest) toSpec() (filter.Spec, error) {
	var spec filter.Spec

	parseDate := func(v string) (*time.Time, error) {
		if v == "" {
			return nil, nil
		}
		for _, layout := range []string{"2006-01-02", time.RFC3339} {
			if t, err := time.Parse(layout, v); err == nil {
				t = t.UTC()
				return &t, nil
			}
		}
		return nil, errors.New("invalid date: " + v)
	}

	var err error
	if spec.DateStart, err = parseDate(req.DateStart); err != nil {
		return spec, err
	}
	if spec.DateEnd, err = parseDate(req.DateEnd); err != nil {
		return spec, err
	}
	spec.Activities = req.Activities
	spec.ExcludeActivities = req.ExcludeActivities
	return spec, nil
}

// handleReport assembles the full analysis for a session. The three result
// sections are computed concurrently; the stored log is read-only so no
// synchronization is needed beyond the errgroup join.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/api/report/")
	log, ok := s.sessionByID(w, sessionID)
	if !ok {
		return
	}

	report, err := BuildReport(sessionID, log)
	if err != nil {
		jsonError(w, err.Error(), string(cferrors.GetCode(err)), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, report)
}

// BuildReport computes the graph, summary, and bottleneck sections of a
// report concurrently. It is shared by the report and archive endpoints and
// by the CLI.
func BuildReport(sessionID string, log *model.EventLog) (*archive.Report, error) {
	report := &archive.Report{
		SessionID: sessionID,
		Filename:  log.Filename,
		CreatedAt: time.Now().UTC(),
	}

	var g errgroup.Group
	g.Go(func() error {
		tt := metrics.CollectTransitionTimes(log)
		res := discovery.Discover(log)
		report.Graph = discovery.BuildGraph(log, res, tt)
		return nil
	})
	g.Go(func() error {
		sum := metrics.Compute(log)
		report.Summary = &sum
		return nil
	})
	g.Go(func() error {
		tt := metrics.CollectTransitionTimes(log)
		report.Bottlenecks = metrics.Bottlenecks(tt)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

// handleArchive exports the session's report to the configured backend.
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.archive == nil {
		jsonError(w, "Archive backend not configured", string(cferrors.CodeArchiveFailed), http.StatusServiceUnavailable)
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/api/archive/")
	log, ok := s.sessionByID(w, sessionID)
	if !ok {
		return
	}

	report, err := BuildReport(sessionID, log)
	if err != nil {
		jsonError(w, err.Error(), string(cferrors.GetCode(err)), http.StatusInternalServerError)
		return
	}

	if err := s.archive.Save(r.Context(), report); err != nil {
		jsonError(w, err.Error(), string(cferrors.CodeArchiveFailed), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]interface{}{
		"session_id": sessionID,
		"backend":    s.archive.Name(),
		"archived":   true,
	})
}

// handleSessions returns the number of registered sessions.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]interface{}{
		"count": s.sessions.Count(),
	})
}

// handleHealth reports service liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessions.Count(),
	})
}

// sessionFromPath resolves the session id after prefix and loads its log,
// writing the error response itself when the lookup fails.
func (s *Server) sessionFromPath(w http.ResponseWriter, r *http.Request, prefix string) (*model.EventLog, bool) {
	return s.sessionByID(w, strings.TrimPrefix(r.URL.Path, prefix))
}

func (s *Server) sessionByID(w http.ResponseWriter, sessionID string) (*model.EventLog, bool) {
	if sessionID == "" || strings.Contains(sessionID, "/") {
		jsonError(w, "Session ID required", string(cferrors.CodeSessionNotFound), http.StatusBadRequest)
		return nil, false
	}

	log, err := s.sessions.Get(sessionID)
	if err != nil {
		if cferrors.IsCode(err, cferrors.CodeSessionNotFound) {
			jsonError(w, "Session not found", string(cferrors.CodeSessionNotFound), http.StatusNotFound)
		} else {
			jsonError(w, err.Error(), string(cferrors.GetCode(err)), http.StatusInternalServerError)
		}
		return nil, false
	}
	return log, true
}

// Helper functions

func jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
