package parser

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/caseflow/caseflow/internal/model"
	cferrors "github.com/caseflow/caseflow/pkg/errors"
)

// XLSXParser parses Excel XLSX files using the excelize streaming reader.
type XLSXParser struct {
	cfg Config
}

// NewXLSXParser creates a new XLSX parser.
func NewXLSXParser(cfg Config) *XLSXParser {
	return &XLSXParser{cfg: cfg}
}

// Parse reads the first sheet of an XLSX workbook and materializes the log.
// Column resolution tries the configured name first and falls back to the
// common aliases seen in process-mining exports.
func (p *XLSXParser) Parse(ctx context.Context, r io.Reader) (*model.EventLog, error) {
	xlFile, err := excelize.OpenReader(r)
	if err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeParseFailed, "open xlsx")
	}
	defer xlFile.Close()

	sheetName := xlFile.GetSheetName(0)
	if sheetName == "" {
		sheetList := xlFile.GetSheetList()
		if len(sheetList) == 0 {
			return nil, ErrEmptyInput
		}
		sheetName = sheetList[0]
	}

	rows, err := xlFile.Rows(sheetName)
	if err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeParseFailed, "read xlsx rows")
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrEmptyInput
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeParseFailed, "read xlsx header")
	}

	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[col] = i
	}

	caseIdx, ok := findColumnIndex(colIdx, p.cfg.CaseIDColumn, "case_id", "case:concept:name", "Case ID", "CaseID")
	if !ok {
		return nil, cferrors.MissingColumn(p.cfg.CaseIDColumn, header)
	}
	actIdx, ok := findColumnIndex(colIdx, p.cfg.ActivityColumn, "activity", "concept:name", "Activity", "event")
	if !ok {
		return nil, cferrors.MissingColumn(p.cfg.ActivityColumn, header)
	}
	tsIdx, ok := findColumnIndex(colIdx, p.cfg.TimestampColumn, "timestamp", "time:timestamp", "Timestamp", "time")
	if !ok {
		return nil, cferrors.MissingColumn(p.cfg.TimestampColumn, header)
	}
	resIdx, _ := findColumnIndex(colIdx, p.cfg.ResourceColumn, "resource", "org:resource", "Resource")

	log := &model.EventLog{}
	builder := newLogBuilder()

	rowNum := 1
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ErrContextCanceled
		default:
		}

		rowNum++
		cols, err := rows.Columns()
		if err != nil {
			return nil, cferrors.ParseError("xlsx", rowNum, err)
		}
		if len(cols) == 0 {
			continue
		}
		if len(cols) <= caseIdx || len(cols) <= actIdx || len(cols) <= tsIdx {
			return nil, cferrors.ParseError("xlsx", rowNum, ErrMissingColumn)
		}

		caseID := cols[caseIdx]
		activity := cols[actIdx]
		if caseID == "" || activity == "" {
			return nil, cferrors.InvalidEvent(caseID, rowNum)
		}

		ts, tsErr := p.parseCellTimestamp(cols[tsIdx])
		if tsErr != nil {
			return nil, cferrors.ParseError("xlsx", rowNum, tsErr).
				WithContext("value", cols[tsIdx])
		}

		rw := row{caseID: caseID, activity: activity, timestamp: ts}
		if resIdx >= 0 && resIdx < len(cols) {
			rw.resource = cols[resIdx]
		}
		for i, col := range header {
			if i == caseIdx || i == actIdx || i == tsIdx || i == resIdx {
				continue
			}
			if i < len(cols) && cols[i] != "" {
				if rw.attributes == nil {
					rw.attributes = make(map[string]string)
				}
				rw.attributes[col] = cols[i]
			}
		}
		builder.add(&log.Traces, rw)
	}

	if log.EventCount() == 0 {
		return nil, ErrEmptyInput
	}
	return log, nil
}

// findColumnIndex tries multiple column names and returns the first match.
func findColumnIndex(colIdx map[string]int, names ...string) (int, bool) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if idx, ok := colIdx[name]; ok {
			return idx, true
		}
	}
	return -1, false
}

// parseCellTimestamp handles Excel serial dates before falling back to the
// shared string layouts.
func (p *XLSXParser) parseCellTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, ErrInvalidTimestamp
	}

	// Excel serial date: days since 1899-12-30, with the 1900 leap year bug.
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 1 {
		days := serial
		if serial >= 60 {
			days--
		}
		t := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC).
			Add(time.Duration(days * 24 * float64(time.Hour)))
		return t, nil
	}

	return parseTimestamp(s, p.cfg.TimestampFormat)
}
