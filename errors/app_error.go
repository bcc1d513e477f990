package errors

import (
	"fmt"
	"time"
)

// appError is the concrete implementation of AppError.
// It is private to enforce construction through package functions.
type appError struct {
	code       ErrorCode
	message    string
	details    any
	occurredAt time.Time
	cause      error
}

// now is replaced in tests that need deterministic timestamps.
var now = time.Now

func newAppError(code ErrorCode, message string, details any, cause error) *appError {
	if !code.Valid() {
		code = CodeUnknown
	}
	return &appError{
		code:       code,
		message:    message,
		details:    details,
		occurredAt: now(),
		cause:      cause,
	}
}

// Error returns the string representation of the error.
// Format: "[CODE] message" or "[CODE] message: cause" if cause is present.
func (e *appError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Code returns the error code.
func (e *appError) Code() ErrorCode {
	return e.code
}

// Classification returns the error classification derived from the code.
func (e *appError) Classification() ErrorClassification {
	return classificationOf(e.code)
}

// Severity returns the severity derived from the code.
func (e *appError) Severity() Severity {
	return severityOf(e.code)
}

// Message returns the error message.
func (e *appError) Message() string {
	return e.message
}

// Details returns the attached payload.
func (e *appError) Details() any {
	return e.details
}

// OccurredAt returns the construction time.
func (e *appError) OccurredAt() time.Time {
	return e.occurredAt
}

// Unwrap returns the wrapped error for standard library compatibility.
func (e *appError) Unwrap() error {
	return e.cause
}
