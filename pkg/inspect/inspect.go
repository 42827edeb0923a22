// Package inspect infers the column schema of a CSV file with DuckDB and
// maps the columns onto the event-log attributes needed for analysis. It is
// a pre-flight tool for the schema command and for upload validation; no
// data is stored in DuckDB.
package inspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	cferrors "github.com/caseflow/caseflow/pkg/errors"
	"github.com/caseflow/caseflow/pkg/parser"
)

// Column represents a column's inferred schema.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	Position int    `json:"position"`
}

// Schema is the inference result for one file, including the process-mining
// column mapping detected from the column names.
type Schema struct {
	SourceFile string        `json:"source_file"`
	Columns    []Column      `json:"columns"`
	Mapping    parser.Config `json:"mapping"`
}

// Inspector infers CSV schemas through an in-memory DuckDB connection.
type Inspector struct {
	db *sql.DB
}

// NewInspector opens an in-memory DuckDB connection.
func NewInspector() (*Inspector, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeSchemaFailed, "open DuckDB connection")
	}
	return &Inspector{db: db}, nil
}

// Close releases the DuckDB connection.
func (i *Inspector) Close() error {
	return i.db.Close()
}

// InferSchema infers the column schema of a CSV file.
func (i *Inspector) InferSchema(ctx context.Context, path string, sampleSize int) (*Schema, error) {
	if sampleSize <= 0 {
		sampleSize = 1000
	}

	query := fmt.Sprintf(`DESCRIBE SELECT * FROM read_csv_auto('%s', header=true, sample_size=%d)`,
		escapePath(path), sampleSize)

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeSchemaFailed, "schema inference").
			WithContext("path", path)
	}
	defer rows.Close()

	var columns []Column
	position := 0
	for rows.Next() {
		var name, dtype string
		var null, key, dflt, extra interface{}
		if err := rows.Scan(&name, &dtype, &null, &key, &dflt, &extra); err != nil {
			return nil, cferrors.Wrap(err, cferrors.CodeSchemaFailed, "scan schema row")
		}
		columns = append(columns, Column{
			Name:     name,
			Type:     dtype,
			Nullable: null == "YES",
			Position: position,
		})
		position++
	}
	if err := rows.Err(); err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeSchemaFailed, "read schema rows")
	}

	return &Schema{
		SourceFile: path,
		Columns:    columns,
		Mapping:    DetectColumns(columns),
	}, nil
}

// DetectColumns maps inferred columns onto the event-log attributes by
// common column name patterns. Empty fields mean no candidate was found.
func DetectColumns(columns []Column) parser.Config {
	casePatterns := []string{"case_id", "case:concept:name", "caseid", "case", "order_id", "ticket_id"}
	activityPatterns := []string{"activity", "concept:name", "activity_name", "event", "action", "step"}
	timestampPatterns := []string{"timestamp", "time:timestamp", "time", "datetime", "date", "created_at", "event_time"}
	resourcePatterns := []string{"resource", "org:resource", "user", "agent", "handler", "operator"}

	colLower := make(map[string]string, len(columns))
	for _, col := range columns {
		colLower[strings.ToLower(col.Name)] = col.Name
	}

	return parser.Config{
		CaseIDColumn:    matchPattern(colLower, casePatterns),
		ActivityColumn:  matchPattern(colLower, activityPatterns),
		TimestampColumn: matchPattern(colLower, timestampPatterns),
		ResourceColumn:  matchPattern(colLower, resourcePatterns),
	}
}

// Complete reports whether the mapping covers all mandatory columns.
func (s *Schema) Complete() bool {
	m := s.Mapping
	return m.CaseIDColumn != "" && m.ActivityColumn != "" && m.TimestampColumn != ""
}

// matchPattern finds the first matching column, exact match before partial.
func matchPattern(columns map[string]string, patterns []string) string {
	for _, pattern := range patterns {
		if original, ok := columns[pattern]; ok {
			return original
		}
	}
	for _, pattern := range patterns {
		for lower, original := range columns {
			if strings.Contains(lower, pattern) {
				return original
			}
		}
	}
	return ""
}

func escapePath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
