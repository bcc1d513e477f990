package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

const unknownMessage = "An unknown error occurred"

// StatusCoder is implemented by transport-level failures that carry a numeric
// status code. Third-party error types only need a StatusCode method to be
// classified by status.
type StatusCoder interface {
	StatusCode() int
}

// StatusError is a transport-level failure carrying a numeric status.
// A status of 0 means the remote side could not be reached at all.
type StatusError struct {
	// Status is the numeric response status, 0 when no response was received.
	Status int
	// Text is an optional description from the remote side.
	Text string
	// Err is an optional underlying cause.
	Err error
}

// NewStatusError creates a StatusError with the given status and text.
func NewStatusError(status int, text string) *StatusError {
	return &StatusError{Status: status, Text: text}
}

// Error implements error.
func (e *StatusError) Error() string {
	text := e.Text
	if text == "" {
		text = http.StatusText(e.Status)
	}
	if text == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, text)
}

// StatusCode implements StatusCoder.
func (e *StatusError) StatusCode() int {
	return e.Status
}

// Unwrap returns the underlying cause, if any.
func (e *StatusError) Unwrap() error {
	return e.Err
}

type timeout interface {
	Timeout() bool
}

// Normalize converts any raw failure into exactly one AppError.
//
// Normalize is total: every input, including nil, non-error values and
// typed-nil errors, produces a well-formed AppError. The rules are applied in
// order:
//
//   - an AppError anywhere in the error chain is returned unchanged
//   - a StatusCoder is mapped by status: 0 NETWORK_ERROR, 401 UNAUTHORIZED,
//     403 FORBIDDEN, 404 NOT_FOUND, 5xx SERVER_ERROR, other 4xx VALIDATION_FAILED
//   - context.DeadlineExceeded and errors reporting Timeout() map to TIMEOUT
//   - any other error becomes UNKNOWN with its message preserved
//   - any other value becomes UNKNOWN with a generic message and the value as details
func Normalize(raw any) (out AppError) {
	defer func() {
		if r := recover(); r != nil {
			out = newAppError(CodeUnknown, unknownMessage, raw, nil)
		}
	}()

	switch v := raw.(type) {
	case nil:
		return newAppError(CodeUnknown, unknownMessage, nil, nil)
	case AppError:
		return v
	case error:
		return normalizeError(v)
	case StatusCoder:
		if appErr, ok := fromStatus(v.StatusCode(), "", nil); ok {
			return WithDetails(appErr, v)
		}
		return newAppError(CodeUnknown, unknownMessage, v, nil)
	default:
		return newAppError(CodeUnknown, unknownMessage, raw, nil)
	}
}

func normalizeError(err error) AppError {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var sc StatusCoder
	if stderrors.As(err, &sc) {
		if appErr, ok := fromStatus(sc.StatusCode(), err.Error(), err); ok {
			return appErr
		}
	}

	var t timeout
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &t) && t.Timeout()) {
		return newAppError(CodeTimeout, "The operation timed out", nil, err)
	}

	message := err.Error()
	if message == "" {
		message = unknownMessage
	}
	return newAppError(CodeUnknown, message, nil, err)
}

// fromStatus maps a status code onto an AppError.
// Returns false for statuses outside the mapped ranges (1xx-3xx).
func fromStatus(status int, text string, cause error) (AppError, bool) {
	switch {
	case status == 0:
		return newAppError(CodeNetwork, "Unable to connect to server", nil, cause), true
	case status == http.StatusUnauthorized:
		return newAppError(CodeUnauthorized, "Authentication required", nil, cause), true
	case status == http.StatusForbidden:
		return newAppError(CodeForbidden, "Access denied", nil, cause), true
	case status == http.StatusNotFound:
		return newAppError(CodeNotFound, "Resource not found", nil, cause), true
	case status >= 500:
		return newAppError(CodeServer, fmt.Sprintf("Server error (%d)", status), nil, cause), true
	case status >= 400:
		if text == "" {
			text = "Invalid request"
		}
		return newAppError(CodeValidation, text, nil, cause), true
	default:
		return nil, false
	}
}
