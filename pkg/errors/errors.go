// Package errors provides structured error handling for CaseFlow: errors
// carry a code for programmatic handling, optional key-value context, and a
// captured stack trace.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Code identifies an error class.
type Code string

const (
	// Ingestion errors (1xx)
	CodeFileNotFound      Code = "E101"
	CodeUnsupportedFormat Code = "E102"
	CodeMissingColumn     Code = "E103"
	CodeInvalidTimestamp  Code = "E104"
	CodeInvalidEvent      Code = "E105"
	CodeParseFailed       Code = "E106"
	CodeEmptyLog          Code = "E107"

	// Session errors (2xx)
	CodeSessionNotFound  Code = "E201"
	CodeSessionDuplicate Code = "E202"

	// Analysis errors (3xx)
	CodeInvalidFilter Code = "E301"

	// Boundary errors (4xx)
	CodeArchiveFailed Code = "E401"
	CodeSchemaFailed  Code = "E402"

	// Unknown
	CodeUnknown Code = "E999"
)

// CaseFlowError is the base error type for all CaseFlow errors.
type CaseFlowError struct {
	Code       Code
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace []Frame
}

// Frame is one captured stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *CaseFlowError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		sb.WriteString(" (")
		first := true
		for k, v := range e.Context {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, v))
			first = false
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *CaseFlowError) Unwrap() error {
	return e.Cause
}

// Is matches on error code.
func (e *CaseFlowError) Is(target error) bool {
	if t, ok := target.(*CaseFlowError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds a key-value pair to the error.
func (e *CaseFlowError) WithContext(key string, value interface{}) *CaseFlowError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new CaseFlowError.
func New(code Code, message string) *CaseFlowError {
	return &CaseFlowError{
		Code:       code,
		Message:    message,
		StackTrace: captureStack(2),
	}
}

// Wrap wraps an existing error with a code and message. Returns nil for a
// nil error.
func Wrap(err error, code Code, message string) *CaseFlowError {
	if err == nil {
		return nil
	}
	return &CaseFlowError{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *CaseFlowError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func captureStack(skip int) []Frame {
	var frames []Frame
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	pcs = pcs[:n]

	cf := runtime.CallersFrames(pcs)
	for {
		frame, more := cf.Next()
		frames = append(frames, Frame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

// --- Convenience constructors ---

// SessionNotFound creates an unknown-session error. It is surfaced to the
// caller as-is; session lookups are never retried.
func SessionNotFound(id string) *CaseFlowError {
	return New(CodeSessionNotFound, "session not found").WithContext("session_id", id)
}

// InvalidEvent creates an invalid-event error for an event missing a
// mandatory attribute.
func InvalidEvent(caseID string, row int) *CaseFlowError {
	return New(CodeInvalidEvent, "event missing activity or timestamp").
		WithContext("case_id", caseID).
		WithContext("row", row)
}

// MissingColumn creates a missing-column error for CSV/XLSX ingestion.
func MissingColumn(column string, available []string) *CaseFlowError {
	return New(CodeMissingColumn, "required column not found").
		WithContext("column", column).
		WithContext("available", available)
}

// ParseError creates a parsing error with source location.
func ParseError(format string, row int, err error) *CaseFlowError {
	return Wrap(err, CodeParseFailed, "parse error").
		WithContext("format", format).
		WithContext("row", row)
}

// --- Error checking utilities ---

// IsCode checks if an error carries a specific code.
func IsCode(err error, code Code) bool {
	var cfErr *CaseFlowError
	if errors.As(err, &cfErr) {
		return cfErr.Code == code
	}
	return false
}

// GetCode extracts the code from an error, CodeUnknown when absent.
func GetCode(err error) Code {
	var cfErr *CaseFlowError
	if errors.As(err, &cfErr) {
		return cfErr.Code
	}
	return CodeUnknown
}
