package parser

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/caseflow/caseflow/internal/model"
	cferrors "github.com/caseflow/caseflow/pkg/errors"
)

// XES attribute key constants (as byte slices for zero-alloc comparison)
var (
	xesConceptName = []byte("concept:name")
	xesTimeStamp   = []byte("time:timestamp")
	xesOrgResource = []byte("org:resource")
)

// XML element names
var (
	xmlLog    = []byte("log")
	xmlTrace  = []byte("trace")
	xmlEvent  = []byte("event")
	xmlString = []byte("string")
	xmlDate   = []byte("date")
	xmlInt    = []byte("int")
	xmlFloat  = []byte("float")
	xmlBool   = []byte("boolean")
)

// XES parser states
type xesState uint8

const (
	stateInit xesState = iota
	stateLog
	stateTrace
	stateEvent
)

// XESParser implements streaming XES parsing using a state machine. Trace
// boundaries come from the document itself, so traces and their events keep
// document order.
type XESParser struct {
	cfg Config
}

// NewXESParser creates a new XES parser.
func NewXESParser(cfg Config) *XESParser {
	return &XESParser{cfg: cfg}
}

// pendingEvent accumulates one <event> element's attributes until the close
// tag, where the event is validated and committed to its trace.
type pendingEvent struct {
	activity   string
	tsValue    string
	resource   string
	attributes map[string]string
}

// Parse implements the Parser interface using a streaming tag scan.
func (p *XESParser) Parse(ctx context.Context, r io.Reader) (*model.EventLog, error) {
	reader := bufio.NewReaderSize(r, 64*1024)

	log := &model.EventLog{}
	state := stateInit
	sawLog := false
	var trace *model.Trace
	var event *pendingEvent
	eventNum := 0

	for {
		select {
		case <-ctx.Done():
			return nil, ErrContextCanceled
		default:
		}

		line, err := reader.ReadBytes('>')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if len(line) == 0 && err == io.EOF {
			break
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if err == io.EOF {
				break
			}
			continue
		}

		switch {
		case isOpenTag(line, xmlLog):
			state = stateLog
			sawLog = true

		case isOpenTag(line, xmlTrace):
			state = stateTrace
			log.Traces = append(log.Traces, model.Trace{})
			trace = &log.Traces[len(log.Traces)-1]

		case isCloseTag(line, xmlTrace):
			state = stateLog
			trace = nil

		case isOpenTag(line, xmlEvent):
			if trace == nil {
				return nil, ErrInvalidXES
			}
			state = stateEvent
			event = &pendingEvent{}

		case isCloseTag(line, xmlEvent):
			if event != nil && trace != nil {
				eventNum++
				if err := p.commitEvent(trace, event, eventNum); err != nil {
					return nil, err
				}
				event = nil
			}
			state = stateTrace

		case state == stateTrace && isAttributeTag(line):
			// Trace-level attribute: concept:name is the case id.
			key, value := extractAttribute(line)
			if trace != nil {
				if bytes.Equal(key, xesConceptName) {
					trace.CaseID = string(value)
				} else if key != nil && value != nil {
					if trace.Attributes == nil {
						trace.Attributes = make(map[string]string)
					}
					trace.Attributes[string(key)] = string(value)
				}
			}

		case state == stateEvent && isAttributeTag(line):
			if event != nil {
				key, value := extractAttribute(line)
				if key == nil || value == nil {
					break
				}
				switch {
				case bytes.Equal(key, xesConceptName):
					event.activity = string(value)
				case bytes.Equal(key, xesTimeStamp):
					event.tsValue = string(value)
				case bytes.Equal(key, xesOrgResource):
					event.resource = string(value)
				default:
					if event.attributes == nil {
						event.attributes = make(map[string]string)
					}
					event.attributes[string(key)] = string(value)
				}
			}
		}

		if err == io.EOF {
			break
		}
	}

	if !sawLog {
		return nil, ErrInvalidXES
	}
	if log.EventCount() == 0 {
		return nil, ErrEmptyInput
	}
	return log, nil
}

// commitEvent validates a completed <event> element and appends it.
func (p *XESParser) commitEvent(trace *model.Trace, ev *pendingEvent, eventNum int) error {
	if ev.activity == "" || ev.tsValue == "" {
		return cferrors.InvalidEvent(trace.CaseID, eventNum)
	}
	ts, err := parseTimestamp(ev.tsValue, p.cfg.TimestampFormat)
	if err != nil {
		return cferrors.ParseError("xes", eventNum, err).
			WithContext("value", ev.tsValue)
	}
	trace.Events = append(trace.Events, model.Event{
		Activity:   ev.activity,
		Timestamp:  ts,
		Resource:   ev.resource,
		Attributes: ev.attributes,
	})
	return nil
}

// isOpenTag checks if line is an opening tag for the given element.
func isOpenTag(line, element []byte) bool {
	if len(line) < len(element)+2 {
		return false
	}
	if line[0] != '<' {
		return false
	}
	if bytes.HasPrefix(line[1:], element) {
		next := 1 + len(element)
		if next >= len(line) {
			return true
		}
		c := line[next]
		return c == '>' || c == ' ' || c == '\t'
	}
	return false
}

// isCloseTag checks if line is a closing tag for the given element.
func isCloseTag(line, element []byte) bool {
	if len(line) < len(element)+3 {
		return false
	}
	if line[0] == '<' && line[1] == '/' {
		return bytes.HasPrefix(line[2:], element)
	}
	// Self-closing <element ... />
	if line[0] == '<' && bytes.HasPrefix(line[1:], element) {
		return line[len(line)-2] == '/' && line[len(line)-1] == '>'
	}
	return false
}

// isAttributeTag checks if line is an XES attribute element.
func isAttributeTag(line []byte) bool {
	if len(line) < 3 || line[0] != '<' {
		return false
	}
	return bytes.HasPrefix(line[1:], xmlString) ||
		bytes.HasPrefix(line[1:], xmlDate) ||
		bytes.HasPrefix(line[1:], xmlInt) ||
		bytes.HasPrefix(line[1:], xmlFloat) ||
		bytes.HasPrefix(line[1:], xmlBool)
}

// extractAttribute extracts key and value from an XES attribute element.
func extractAttribute(line []byte) (key, value []byte) {
	key = extractAttrValue(line, []byte("key=\""))
	value = extractAttrValue(line, []byte("value=\""))
	return key, value
}

// extractAttrValue extracts an XML attribute value.
func extractAttrValue(line, prefix []byte) []byte {
	idx := bytes.Index(line, prefix)
	if idx < 0 {
		return nil
	}
	start := idx + len(prefix)
	end := bytes.IndexByte(line[start:], '"')
	if end < 0 {
		return nil
	}
	return line[start : start+end]
}
