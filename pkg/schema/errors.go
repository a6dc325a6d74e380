package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeOutOfRange        = "OUT_OF_RANGE"
	ErrCodeMalformedContent  = "MALFORMED_CONTENT"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeLocked            = "LOCKED"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeStore             = "STORE_ERROR"
	ErrCodeExpression        = "EXPRESSION_ERROR"
)

// AcademyError is the structured error type returned by catalog, session and store operations.
type AcademyError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	StepID  string         `json:"step_id,omitempty"`
	Cause   error          `json:"-"`
}

func (e *AcademyError) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("[%s] step %s: %s", e.Code, e.StepID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AcademyError) Unwrap() error {
	return e.Cause
}

// NewError creates a new AcademyError.
func NewError(code, message string) *AcademyError {
	return &AcademyError{Code: code, Message: message}
}

// NewErrorf creates a new AcademyError with a formatted message.
func NewErrorf(code, format string, args ...any) *AcademyError {
	return &AcademyError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithStep attaches a step ID to the error.
func (e *AcademyError) WithStep(stepID string) *AcademyError {
	e.StepID = stepID
	return e
}

// WithCause attaches an underlying cause.
func (e *AcademyError) WithCause(err error) *AcademyError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *AcademyError) WithDetails(details map[string]any) *AcademyError {
	e.Details = details
	return e
}

// IsCode reports whether err (or anything it wraps) is an AcademyError with the given code.
func IsCode(err error, code string) bool {
	var ae *AcademyError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// CodeOf returns the code of the first AcademyError in err's chain, or "".
func CodeOf(err error) string {
	var ae *AcademyError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
