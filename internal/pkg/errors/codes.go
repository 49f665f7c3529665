package errors

import (
	"fmt"
	"net/http"
)

// Error code constants. Errors carry code + message; the API layer maps
// them to HTTP responses.

// Report error codes.
const (
	CodeReportNotFound  = "REPORT_NOT_FOUND"
	CodeDuplicateReport = "DUPLICATE_REPORT"
	CodeInvalidLocation = "INVALID_LOCATION"
)

// Event error codes.
const (
	CodeEventNotFound    = "EVENT_NOT_FOUND"
	CodeEventConflict    = "EVENT_UPDATE_CONFLICT"
	CodeReclusterRunning = "RECLUSTER_ALREADY_RUNNING"
)

// Validation error codes.
const (
	CodeInvalidRequestField = "INVALID_REQUEST_FIELD"
	CodeValidationFailed    = "VALIDATION_FAILED"
)

// Infrastructure error codes.
const (
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
)

// Convenience constructors using predefined codes.

// ErrReportNotFoundf creates a report not found error.
func ErrReportNotFoundf(format string, args ...any) *AppError {
	return &AppError{
		Code:       CodeReportNotFound,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: http.StatusNotFound,
		Err:        ErrNotFound,
	}
}

// ErrEventNotFoundf creates an event not found error.
func ErrEventNotFoundf(format string, args ...any) *AppError {
	return &AppError{
		Code:       CodeEventNotFound,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: http.StatusNotFound,
		Err:        ErrNotFound,
	}
}

// ErrEventConflictf creates a retryable concurrent-update error.
func ErrEventConflictf(format string, args ...any) *AppError {
	return &AppError{
		Code:       CodeEventConflict,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: http.StatusConflict,
		Retryable:  true,
		Err:        ErrConflict,
	}
}

// ErrDuplicateReportf creates a duplicate ingestion error.
func ErrDuplicateReportf(format string, args ...any) *AppError {
	return &AppError{
		Code:       CodeDuplicateReport,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: http.StatusConflict,
		Err:        ErrAlreadyExists,
	}
}
