package errors

import (
	stderrors "errors"
)

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard library errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard library errors.As.
//
// Example:
//
//	var appErr errors.AppError
//	if errors.As(err, &appErr) {
//	    code := appErr.Code()
//	}
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// GetCode extracts the ErrorCode from an error.
// Returns CodeUnknown if the error is nil or not an AppError.
//
// This function handles the error chain and will extract the code from
// the outermost AppError in the chain.
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// GetClassification extracts the ErrorClassification from an error.
// Returns ClassificationPermanent if the error is nil or not an AppError.
// This is a safe default that prevents inappropriate retry attempts.
func GetClassification(err error) ErrorClassification {
	if err == nil {
		return ClassificationPermanent
	}

	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr.Classification()
	}

	return ClassificationPermanent
}

// IsRetryable returns true if the error chain holds an AppError classified as retryable.
// Returns false if the error is nil or not an AppError (safe default).
func IsRetryable(err error) bool {
	return GetClassification(err).IsRetryable()
}

// ShouldRetry reports whether a failure is eligible for automatic retry.
// Unlike IsRetryable the error is normalized first, so a raw StatusError with
// a 5xx status is retryable too. Only NETWORK_ERROR, TIMEOUT and SERVER_ERROR
// qualify.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	return Normalize(err).Classification().IsRetryable()
}

// SeverityOf returns the logging severity of a failure after normalization.
func SeverityOf(err error) Severity {
	if err == nil {
		return SeverityError
	}
	return Normalize(err).Severity()
}
