package parser

import "errors"

var (
	// ErrUnsupportedFormat is returned when the input format is not supported.
	ErrUnsupportedFormat = errors.New("parser: unsupported format")

	// ErrInvalidCSV is returned when CSV parsing fails structurally.
	ErrInvalidCSV = errors.New("parser: invalid CSV format")

	// ErrInvalidXES is returned when XES parsing fails structurally.
	ErrInvalidXES = errors.New("parser: invalid XES format")

	// ErrMissingColumn is returned when a required column is missing.
	ErrMissingColumn = errors.New("parser: required column missing")

	// ErrInvalidTimestamp is returned when timestamp parsing fails.
	ErrInvalidTimestamp = errors.New("parser: invalid timestamp format")

	// ErrEmptyInput is returned when the source holds no rows at all.
	ErrEmptyInput = errors.New("parser: input is empty")

	// ErrContextCanceled is returned when the context is canceled mid-parse.
	ErrContextCanceled = errors.New("parser: context canceled")
)
