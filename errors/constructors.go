package errors

import "fmt"

// New creates a new AppError with the given code and message.
// Codes outside the declared set are replaced by CodeUnknown.
//
// Example:
//
//	err := errors.New(errors.CodeNotFound, "project not found")
func New(code ErrorCode, message string) AppError {
	return newAppError(code, message, nil, nil)
}

// Newf creates a new AppError with a formatted message.
//
// Example:
//
//	err := errors.Newf(errors.CodeInvalidInput, "title too long: %d characters (max %d)", n, maxLen)
func Newf(code ErrorCode, format string, args ...any) AppError {
	return newAppError(code, fmt.Sprintf(format, args...), nil, nil)
}

// NewWithDetails creates a new AppError carrying an opaque details payload.
//
// Example:
//
//	err := errors.NewWithDetails(errors.CodeStorageQuotaExceeded, "storage quota may be exceeded",
//	    map[string]any{"currentSize": current, "itemSize": size})
func NewWithDetails(code ErrorCode, message string, details any) AppError {
	return newAppError(code, message, details, nil)
}
