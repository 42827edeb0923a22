package parser

import (
	"bufio"
	"context"
	"io"

	"github.com/caseflow/caseflow/internal/model"
	cferrors "github.com/caseflow/caseflow/pkg/errors"
)

// CSVParser implements byte-level CSV parsing without strings.Split.
type CSVParser struct {
	cfg       Config
	delimiter byte
}

// NewCSVParser creates a new CSV parser.
func NewCSVParser(cfg Config) *CSVParser {
	return &CSVParser{cfg: cfg, delimiter: ','}
}

// Parse implements the Parser interface. Rows are grouped into traces by
// case id; a row with an unparseable timestamp or an empty mandatory field
// fails the whole parse, so downstream analysis never sees a partial log.
func (p *CSVParser) Parse(ctx context.Context, r io.Reader) (*model.EventLog, error) {
	reader := bufio.NewReaderSize(r, 64*1024)

	headerLine, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	headerLine = trimLineEnding(headerLine)
	if len(headerLine) == 0 {
		return nil, ErrEmptyInput
	}

	columns := fieldsToStrings(p.parseCSVLine(headerLine))
	colMap := make(map[string]int, len(columns))
	for i, col := range columns {
		colMap[col] = i
	}

	caseIdx, ok := colMap[p.cfg.CaseIDColumn]
	if !ok {
		return nil, cferrors.MissingColumn(p.cfg.CaseIDColumn, columns)
	}
	actIdx, ok := colMap[p.cfg.ActivityColumn]
	if !ok {
		return nil, cferrors.MissingColumn(p.cfg.ActivityColumn, columns)
	}
	tsIdx, ok := colMap[p.cfg.TimestampColumn]
	if !ok {
		return nil, cferrors.MissingColumn(p.cfg.TimestampColumn, columns)
	}
	resIdx := -1
	if idx, ok := colMap[p.cfg.ResourceColumn]; ok {
		resIdx = idx
	}

	log := &model.EventLog{}
	builder := newLogBuilder()

	lineNum := 1
	for {
		select {
		case <-ctx.Done():
			return nil, ErrContextCanceled
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if len(line) == 0 && err == io.EOF {
			break
		}
		lineNum++

		line = trimLineEnding(line)
		if len(line) == 0 {
			if err == io.EOF {
				break
			}
			continue
		}

		fields := fieldsToStrings(p.parseCSVLine(line))
		if len(fields) <= caseIdx || len(fields) <= actIdx || len(fields) <= tsIdx {
			return nil, cferrors.ParseError("csv", lineNum, ErrInvalidCSV)
		}

		caseID := fields[caseIdx]
		activity := fields[actIdx]
		if caseID == "" || activity == "" {
			return nil, cferrors.InvalidEvent(caseID, lineNum)
		}

		ts, tsErr := parseTimestamp(fields[tsIdx], p.cfg.TimestampFormat)
		if tsErr != nil {
			return nil, cferrors.ParseError("csv", lineNum, tsErr).
				WithContext("value", fields[tsIdx])
		}

		rw := row{caseID: caseID, activity: activity, timestamp: ts}
		if resIdx >= 0 && resIdx < len(fields) {
			rw.resource = fields[resIdx]
		}
		for i, col := range columns {
			if i == caseIdx || i == actIdx || i == tsIdx || i == resIdx {
				continue
			}
			if i < len(fields) && fields[i] != "" {
				if rw.attributes == nil {
					rw.attributes = make(map[string]string)
				}
				rw.attributes[col] = fields[i]
			}
		}
		builder.add(&log.Traces, rw)

		if err == io.EOF {
			break
		}
	}

	if log.EventCount() == 0 {
		return nil, ErrEmptyInput
	}
	return log, nil
}

// parseCSVLine parses a CSV line using byte-level scanning.
// Handles quoted fields with embedded delimiters and quotes.
func (p *CSVParser) parseCSVLine(line []byte) [][]byte {
	if len(line) == 0 {
		return nil
	}

	fields := make([][]byte, 0, 16)
	start := 0
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]

		if c == '"' {
			if !inQuotes {
				inQuotes = true
			} else if i+1 < len(line) && line[i+1] == '"' {
				i++ // escaped quote
			} else {
				inQuotes = false
			}
		} else if c == p.delimiter && !inQuotes {
			fields = append(fields, unquoteField(line[start:i]))
			start = i + 1
		}
	}
	fields = append(fields, unquoteField(line[start:]))

	return fields
}

// unquoteField removes surrounding quotes and unescapes embedded quotes.
func unquoteField(field []byte) []byte {
	if len(field) < 2 {
		return field
	}
	if field[0] == '"' && field[len(field)-1] == '"' {
		field = field[1 : len(field)-1]
		result := make([]byte, 0, len(field))
		for i := 0; i < len(field); i++ {
			if field[i] == '"' && i+1 < len(field) && field[i+1] == '"' {
				result = append(result, '"')
				i++
			} else {
				result = append(result, field[i])
			}
		}
		return result
	}
	return field
}

func fieldsToStrings(fields [][]byte) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = string(f)
	}
	return out
}

// trimLineEnding removes trailing \n and \r characters.
func trimLineEnding(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
