package errors

import (
	"fmt"
	"net/http"

	"go-ingredient-scanner/pkg/models"
)

// AppError is a structured pipeline error. Message is the user-facing,
// localized text; Details and Cause carry the internal diagnostics and are
// never rendered to the user.
type AppError struct {
	Kind       models.ErrorKind `json:"kind"`
	Message    string           `json:"message"`
	Details    string           `json:"details,omitempty"`
	StatusCode int              `json:"status_code"`
	Cause      error            `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Report converts the error into the presentation-facing artifact.
func (e *AppError) Report() *models.ErrorReport {
	return &models.ErrorReport{
		Kind:    e.Kind,
		Message: e.Message,
		Cause:   e.Cause,
	}
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(message string, cause error) *AppError {
	return &AppError{
		Kind:       models.KindConfiguration,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return &AppError{
		Kind:       models.KindNetwork,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewParseError creates a new parse error
func NewParseError(message string, cause error) *AppError {
	return &AppError{
		Kind:       models.KindParse,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Kind:       models.KindValidation,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return &AppError{
		Kind:       models.KindTimeout,
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
		Cause:      cause,
	}
}

// NewUnknownError creates a new unknown error
func NewUnknownError(message string, cause error) *AppError {
	return &AppError{
		Kind:       models.KindUnknown,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// IsKind checks if the error is of a specific kind
func IsKind(err error, kind models.ErrorKind) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Kind == kind
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
