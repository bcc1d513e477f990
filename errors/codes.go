package errors

// ErrorCode identifies the kind of a failure.
// The set of codes is closed: every normalized error carries exactly one of
// the codes declared below.
type ErrorCode string

const (
	// Validation errors.

	// CodeValidation indicates the submitted data failed validation.
	CodeValidation ErrorCode = "VALIDATION_FAILED"

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeRequiredField indicates a mandatory field was left empty.
	CodeRequiredField ErrorCode = "REQUIRED_FIELD"

	// Authentication errors.

	// CodeUnauthorized indicates the request lacks valid authentication credentials.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeForbidden indicates the authenticated user lacks permission for the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// CodeSessionExpired indicates a previously valid session is no longer accepted.
	CodeSessionExpired ErrorCode = "SESSION_EXPIRED"

	// Network errors.

	// CodeNetwork indicates the remote side could not be reached.
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeServer indicates the remote side failed while processing the request.
	CodeServer ErrorCode = "SERVER_ERROR"

	// Resource errors.

	// CodeNotFound indicates a requested resource does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeAlreadyExists indicates a resource already exists and cannot be created again.
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// CodeConflict indicates a resource state conflict that prevents the operation.
	CodeConflict ErrorCode = "CONFLICT"

	// Storage errors.

	// CodeStorageQuotaExceeded indicates the durable medium ran out of space.
	CodeStorageQuotaExceeded ErrorCode = "STORAGE_QUOTA_EXCEEDED"

	// CodeStorageNotAvailable indicates the durable medium cannot be used.
	CodeStorageNotAvailable ErrorCode = "STORAGE_NOT_AVAILABLE"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

var allCodes = []ErrorCode{
	CodeValidation,
	CodeInvalidInput,
	CodeRequiredField,
	CodeUnauthorized,
	CodeForbidden,
	CodeSessionExpired,
	CodeNetwork,
	CodeTimeout,
	CodeServer,
	CodeNotFound,
	CodeAlreadyExists,
	CodeConflict,
	CodeStorageQuotaExceeded,
	CodeStorageNotAvailable,
	CodeUnknown,
}

// Codes returns every declared error code in a stable order.
// The returned slice is a copy and may be modified by the caller.
func Codes() []ErrorCode {
	out := make([]ErrorCode, len(allCodes))
	copy(out, allCodes)
	return out
}

// Valid reports whether c is one of the declared codes.
func (c ErrorCode) Valid() bool {
	for _, known := range allCodes {
		if c == known {
			return true
		}
	}
	return false
}
