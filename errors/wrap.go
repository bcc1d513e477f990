package errors

import "fmt"

// Wrap wraps an error with a code and message while preserving the original error.
// The wrapped error is accessible via Unwrap() and compatible with errors.Is and errors.As.
//
// Returns nil if err is nil.
//
// Example:
//
//	if err := medium.Write(ctx, key, data); err != nil {
//	    return errors.Wrap(err, errors.CodeStorageNotAvailable, "failed to write entry")
//	}
func Wrap(err error, code ErrorCode, message string) AppError {
	if err == nil {
		return nil
	}
	return newAppError(code, message, nil, err)
}

// Wrapf wraps an error with a formatted message while preserving the original error.
//
// Returns nil if err is nil.
func Wrapf(err error, code ErrorCode, format string, args ...any) AppError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WithDetails returns a copy of err carrying the given details payload.
// Code, message, cause and timestamp are preserved.
//
// If err is not an AppError it is normalized first.
// Returns nil if err is nil.
func WithDetails(err error, details any) AppError {
	if err == nil {
		return nil
	}
	appErr := Normalize(err)
	return &appError{
		code:       appErr.Code(),
		message:    appErr.Message(),
		details:    details,
		occurredAt: appErr.OccurredAt(),
		cause:      appErr.Unwrap(),
	}
}
