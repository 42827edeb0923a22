// Package archive exports analysis reports to durable storage. A report is
// the full JSON result for one session (graph, summary, bottlenecks);
// backends only move bytes and never interpret the analysis.
package archive

import (
	"context"
	"errors"
	"time"

	"github.com/caseflow/caseflow/pkg/config"
	"github.com/caseflow/caseflow/pkg/discovery"
	"github.com/caseflow/caseflow/pkg/metrics"
)

// ErrNotFound is returned when a report does not exist in the backend.
var ErrNotFound = errors.New("archive: report not found")

// Report is the exported analysis result for one session.
type Report struct {
	SessionID   string               `json:"session_id"`
	Filename    string               `json:"filename"`
	CreatedAt   time.Time            `json:"created_at"`
	Graph       *discovery.Graph     `json:"graph"`
	Summary     *metrics.Summary     `json:"summary"`
	Bottlenecks []metrics.Bottleneck `json:"bottlenecks"`
}

// Backend defines the interface for report export backends.
// Implementations can store reports in various locations (local, S3, Redis).
type Backend interface {
	// Save persists a report to the backend.
	Save(ctx context.Context, r *Report) error

	// Load retrieves a report by session ID.
	Load(ctx context.Context, sessionID string) (*Report, error)

	// Delete removes a report.
	Delete(ctx context.Context, sessionID string) error

	// List returns the session IDs of all stored reports.
	List(ctx context.Context) ([]string, error)

	// Name returns the backend name for logging/debugging.
	Name() string
}

// New builds the backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.ArchiveConfig) (Backend, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalBackend(cfg.Local.Dir)
	case "redis":
		return NewRedisBackend(cfg.Redis)
	case "s3":
		return NewS3Backend(ctx, cfg.S3)
	default:
		return nil, errors.New("archive: unknown backend " + cfg.Backend)
	}
}
