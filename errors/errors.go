package errors

import "time"

// AppError is the normalized representation of any failure.
//
// AppError values are immutable. They are produced by New, Newf, Wrap and
// Normalize and stay compatible with the standard library (errors.Is,
// errors.As, errors.Unwrap).
type AppError interface {
	error

	// Code returns the error code identifying the kind of error.
	Code() ErrorCode

	// Classification returns whether the error is retryable or permanent.
	Classification() ErrorClassification

	// Severity returns the logging severity for the error.
	Severity() Severity

	// Message returns the human-readable error message.
	Message() string

	// Details returns the optional opaque payload attached at construction.
	// Returns nil if no details were attached.
	Details() any

	// OccurredAt returns the time the error was constructed.
	OccurredAt() time.Time

	// Unwrap returns the wrapped error for errors.Is and errors.As compatibility.
	// Returns nil if this error does not wrap another error.
	Unwrap() error
}
