package errors

import (
	goerrors "errors"
	"fmt"
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

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
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

// GetCode returns the error code if it's an AppError, otherwise "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if goerrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// IsCode reports whether err carries the given code
func IsCode(err error, code string) bool {
	var appErr *AppError
	if goerrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Predefined error codes
const (
	CodeColumnNotFound   = "COLUMN_NOT_FOUND"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeNoData           = "NO_DATA"
	CodeForecastFailed   = "FORECAST_FAILED"
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeDatabaseError    = "DATABASE_ERROR"
	CodeIngestError      = "INGEST_ERROR"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeNotFound         = "NOT_FOUND"
	CodeInternalError    = "INTERNAL_ERROR"
)

// Common error constructors

// ColumnNotFound signals a requested pollutant column is absent from the table.
func ColumnNotFound(pollutant string) *AppError {
	return New(CodeColumnNotFound, fmt.Sprintf("pollutant %s not found in data", pollutant))
}

// InsufficientData signals a series is too short for the requested operation.
func InsufficientData(operation string, got, want int) *AppError {
	return New(CodeInsufficientData, fmt.Sprintf("insufficient data for %s: %d points, need at least %d", operation, got, want))
}

// NoData signals an empty series after missing-value removal.
func NoData(pollutant string) *AppError {
	return New(CodeNoData, fmt.Sprintf("no data to analyze for %s", pollutant))
}

// ForecastFailed signals that every forecast sub-model failed.
func ForecastFailed(message string) *AppError {
	return New(CodeForecastFailed, message)
}

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message)
}

func IngestError(message string) *AppError {
	return New(CodeIngestError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}
