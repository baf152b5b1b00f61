package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"gradelens/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context. The code is kept from an
// AppError cause, else derived from the domain error.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    CodeFor(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeConfigInvalid     = "CONFIG_INVALID"
	CodeDatabaseError     = "DATABASE_ERROR"
	CodeValidationError   = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeSchemaError       = "SCHEMA_ERROR"
	CodeParseError        = "PARSE_ERROR"
	CodeBinningError      = "BINNING_ERROR"
	CodeInvalidRange      = "INVALID_RANGE"
	CodeColumnNotFound    = "COLUMN_NOT_FOUND"
	CodeNotNumeric        = "NOT_NUMERIC"
	CodeMetricMismatch    = "METRIC_MISMATCH"
	CodeInvalidCohortSize = "INVALID_COHORT_SIZE"
	CodeUndefined         = "COEFFICIENT_UNDEFINED"
)

// domainCodes maps domain sentinels to codes, most specific first
var domainCodes = []struct {
	err  error
	code string
}{
	{core.ErrSchema, CodeSchemaError},
	{core.ErrParse, CodeParseError},
	{core.ErrBinning, CodeBinningError},
	{core.ErrInvalidRange, CodeInvalidRange},
	{core.ErrColumnNotFound, CodeColumnNotFound},
	{core.ErrNotNumeric, CodeNotNumeric},
	{core.ErrMetricMismatch, CodeMetricMismatch},
	{core.ErrInvalidCohortSize, CodeInvalidCohortSize},
	{core.ErrCoefficientUndefined, CodeUndefined},
	{core.ErrInvalidQuery, CodeInvalidInput},
	{core.ErrNotFound, CodeNotFound},
}

// CodeFor classifies err: an AppError keeps its code, a domain error maps to
// its code, anything else is internal.
func CodeFor(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	for _, dc := range domainCodes {
		if stderrors.Is(err, dc.err) {
			return dc.code
		}
	}
	return CodeInternalError
}

// HTTPStatus maps an error code to a response status
func HTTPStatus(code string) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeSchemaError, CodeParseError:
		return http.StatusUnprocessableEntity
	case CodeBinningError, CodeInvalidRange, CodeColumnNotFound, CodeNotNumeric,
		CodeMetricMismatch, CodeInvalidCohortSize, CodeUndefined,
		CodeInvalidInput, CodeValidationError:
		return http.StatusBadRequest
	case CodeDatabaseError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{Code: CodeDatabaseError, Message: message, Cause: cause}
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}
