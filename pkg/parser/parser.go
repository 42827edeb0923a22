// Package parser materializes event logs from the supported input formats
// (CSV, XES, XLSX). It is the ingestion collaborator of the analytics
// engine: parsers validate events up front so the engine can assume every
// event carries a valid activity name and an orderable timestamp.
package parser

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/caseflow/caseflow/internal/model"
)

// Parser reads one source and materializes an event log. Implementations
// normalize every timestamp to UTC and fail fast on events missing their
// mandatory attributes.
type Parser interface {
	Parse(ctx context.Context, r io.Reader) (*model.EventLog, error)
}

// Format represents a supported input format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatXES
	FormatXLSX
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXES:
		return "xes"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format string.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "csv":
		return FormatCSV
	case "xes":
		return FormatXES
	case "xlsx", "excel":
		return FormatXLSX
	default:
		return FormatUnknown
	}
}

// DetectFormat determines the format from the file extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".xes":
		return FormatXES
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatUnknown
	}
}

// Config holds column mapping for row-based formats and the fallback
// timestamp layout. XES carries its own attribute keys and ignores the
// column fields.
type Config struct {
	// CaseIDColumn is the name of the case ID column (CSV/XLSX).
	CaseIDColumn string

	// ActivityColumn is the name of the activity column (CSV/XLSX).
	ActivityColumn string

	// TimestampColumn is the name of the timestamp column (CSV/XLSX).
	TimestampColumn string

	// ResourceColumn is the name of the resource column (optional).
	ResourceColumn string

	// TimestampFormat is tried after the built-in layouts (Go time layout).
	TimestampFormat string
}

// DefaultConfig returns a Config with the plain column names the original
// upload flow required; XES-style names are accepted by callers that map
// columns explicitly.
func DefaultConfig() Config {
	return Config{
		CaseIDColumn:    "case_id",
		ActivityColumn:  "activity",
		TimestampColumn: "timestamp",
		ResourceColumn:  "resource",
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	}
}

// NewParser creates a parser for the given format.
func NewParser(format Format, cfg Config) (Parser, error) {
	switch format {
	case FormatCSV:
		return NewCSVParser(cfg), nil
	case FormatXES:
		return NewXESParser(cfg), nil
	case FormatXLSX:
		return NewXLSXParser(cfg), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// ParseFile is a convenience wrapper: detect the format from path, build
// the parser, and materialize the log with the file's base name recorded as
// provenance.
func ParseFile(ctx context.Context, path string, r io.Reader, cfg Config) (*model.EventLog, error) {
	format := DetectFormat(path)
	p, err := NewParser(format, cfg)
	if err != nil {
		return nil, err
	}
	log, err := p.Parse(ctx, r)
	if err != nil {
		return nil, err
	}
	log.Filename = filepath.Base(path)
	return log, nil
}
