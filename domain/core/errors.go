package core

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors - centralized error definitions
var (
	// Load-time errors, fatal to the session
	ErrSchema = errors.New("schema error")
	ErrParse  = errors.New("parse error")

	// Query-time errors, fatal only to the request
	ErrBinning           = errors.New("invalid bin spec")
	ErrInvalidRange      = errors.New("invalid range")
	ErrColumnNotFound    = errors.New("column not found")
	ErrNotNumeric        = errors.New("column is not numeric")
	ErrMetricMismatch    = errors.New("cohort metric sets differ")
	ErrInvalidCohortSize = errors.New("cohort size must be positive")
	ErrInvalidQuery      = errors.New("invalid query")

	// Reported per correlation pair, never fatal to the matrix
	ErrCoefficientUndefined = errors.New("correlation coefficient undefined")

	// Session errors
	ErrNotFound        = errors.New("resource not found")
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)
)

// SchemaError lists every required column absent from a source.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%v: missing required columns [%s]", ErrSchema, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// ParseError pins a cell that could not be coerced to its declared type.
// Row is the 1-based data row (header excluded).
type ParseError struct {
	Column string
	Row    int
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("%v: column %q row %d value %q: %s", ErrParse, e.Column, e.Row, e.Value, e.Reason)
	}
	return fmt.Sprintf("%v: column %q value %q: %s", ErrParse, e.Column, e.Value, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// Error constructors with context
func NewColumnNotFoundError(column string) error {
	return fmt.Errorf("%w: %q", ErrColumnNotFound, column)
}

func NewNotNumericError(column string) error {
	return fmt.Errorf("%w: %q", ErrNotNumeric, column)
}

func NewInvalidRangeError(column string, min, max float64) error {
	return fmt.Errorf("%w for %q: min %g > max %g", ErrInvalidRange, column, min, max)
}

func NewBinningError(target string, reason string) error {
	return fmt.Errorf("%w %q: %s", ErrBinning, target, reason)
}

func NewSessionNotFoundError(id ID) error {
	return fmt.Errorf("%w with id %s", ErrSessionNotFound, id)
}

// IsLoadError reports a source that does not fit the student schema
func IsLoadError(err error) bool {
	return errors.Is(err, ErrSchema) || errors.Is(err, ErrParse)
}

// IsQueryError reports a malformed query against a valid dataset
func IsQueryError(err error) bool {
	return errors.Is(err, ErrBinning) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrColumnNotFound) ||
		errors.Is(err, ErrNotNumeric) ||
		errors.Is(err, ErrMetricMismatch) ||
		errors.Is(err, ErrInvalidCohortSize) ||
		errors.Is(err, ErrInvalidQuery)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
