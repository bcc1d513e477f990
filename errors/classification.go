package errors

import "log/slog"

// ErrorClassification indicates whether an error should trigger a retry.
type ErrorClassification string

const (
	// ClassificationRetryable indicates temporary failures that may succeed on retry.
	// Examples: unreachable server, timeouts, 5xx responses.
	ClassificationRetryable ErrorClassification = "RETRYABLE"

	// ClassificationPermanent indicates failures that will not succeed on retry.
	// Examples: validation errors, permission denials, resource not found.
	ClassificationPermanent ErrorClassification = "PERMANENT"
)

// IsRetryable returns true if the classification indicates retry should be attempted.
func (c ErrorClassification) IsRetryable() bool {
	return c == ClassificationRetryable
}

// retryableCodes is the complete set of codes eligible for automatic retry.
// Every other code is permanent.
var retryableCodes = map[ErrorCode]struct{}{
	CodeNetwork: {},
	CodeTimeout: {},
	CodeServer:  {},
}

// classificationOf returns the classification for an error code.
// Unlisted codes are permanent (safe default).
func classificationOf(code ErrorCode) ErrorClassification {
	if _, ok := retryableCodes[code]; ok {
		return ClassificationRetryable
	}
	return ClassificationPermanent
}

// Severity ranks errors for logging and telemetry.
// It never changes whether a caller sees an error.
type Severity string

// Severity levels, lowest first.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

var severities = map[ErrorCode]Severity{
	CodeUnauthorized:   SeverityWarning,
	CodeForbidden:      SeverityWarning,
	CodeSessionExpired: SeverityWarning,

	CodeServer:  SeverityCritical,
	CodeNetwork: SeverityCritical,

	CodeValidation:    SeverityInfo,
	CodeInvalidInput:  SeverityInfo,
	CodeRequiredField: SeverityInfo,
	CodeNotFound:      SeverityInfo,
}

// severityOf returns the severity for a code, SeverityError when unlisted.
func severityOf(code ErrorCode) Severity {
	if s, ok := severities[code]; ok {
		return s
	}
	return SeverityError
}

// Level maps the severity onto the slog level used when the error is logged.
func (s Severity) Level() slog.Level {
	switch s {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
